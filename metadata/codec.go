package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"github.com/google/uuid"

	"crossplay/types"
)

// ErrCorruptTag reports a malformed tag container. Callers treat this as
// "no metadata", never as a fatal scan failure.
var ErrCorruptTag = errors.New("corrupt tag container")

// TempPrefix marks codec temp files so a startup sweep can reclaim them
// after a crash. Scans skip dot-prefixed names entirely.
const TempPrefix = ".crossplay-tag-"

// Codec reads and writes the metadata embedded in library audio files,
// including the provenance comment.
type Codec interface {
	Read(path string) (types.TagSet, error)
	Write(path string, tags types.TagSet) error
}

type codec struct{}

// NewCodec creates a new metadata codec.
func NewCodec() Codec {
	return &codec{}
}

// Read extracts the standard fields and the provenance map from the file at
// path. A file with no tags at all yields an empty TagSet and no error; a
// malformed tag container yields ErrCorruptTag.
func (c *codec) Read(path string) (types.TagSet, error) {
	tags := types.TagSet{Provenance: map[string]string{}}

	f, err := os.Open(path)
	if err != nil {
		return tags, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	switch {
	case err == nil:
		tags.Title = meta.Title()
		tags.Artist = meta.Artist()
		tags.Album = meta.Album()
	case errors.Is(err, tag.ErrNoTagsFound):
		// No tag block at all. Treated as empty metadata.
	default:
		return tags, fmt.Errorf("%w: %s: %v", ErrCorruptTag, path, err)
	}

	// Provenance lives in an ID3v2 comment frame. Files tagged by other
	// software, or non-ID3 containers, simply have none.
	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return tags, nil
	}
	defer id3.Close()

	for _, framer := range id3.GetFrames(id3.CommonID("Comments")) {
		comment, ok := framer.(id3v2.CommentFrame)
		if !ok {
			continue
		}
		if comment.Description == CommentDescription {
			tags.Provenance = DecodeProvenance(comment.Text)
			break
		}
	}

	return tags, nil
}

// Write replaces the standard fields and the provenance comment of the file
// at path with the given TagSet, leaving every other frame (album art,
// foreign comments) untouched. The write is atomic: tags are applied to a
// temp copy in the same directory which is then renamed over the original,
// so a crash mid-write never leaves a half-written file at the canonical
// path.
func (c *codec) Write(path string, tags types.TagSet) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, TempPrefix+uuid.New().String())

	if err := copyFile(path, tmp); err != nil {
		return fmt.Errorf("stage tag write for %s: %w", path, err)
	}
	defer os.Remove(tmp)

	id3, err := id3v2.Open(tmp, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptTag, path, err)
	}

	id3.SetDefaultEncoding(id3v2.EncodingUTF8)
	id3.SetTitle(tags.Title)
	id3.SetArtist(tags.Artist)
	id3.SetAlbum(tags.Album)
	setProvenanceComment(id3, tags.Provenance)

	if err := id3.Save(); err != nil {
		id3.Close()
		return fmt.Errorf("save tags for %s: %w", path, err)
	}
	if err := id3.Close(); err != nil {
		return fmt.Errorf("close tag writer for %s: %w", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit tag write for %s: %w", path, err)
	}
	return nil
}

// setProvenanceComment rewrites the CrossPlay comment frame, keeping comment
// frames owned by other software. An empty map deletes the frame.
func setProvenanceComment(id3 *id3v2.Tag, provenance map[string]string) {
	commentID := id3.CommonID("Comments")

	var foreign []id3v2.CommentFrame
	for _, framer := range id3.GetFrames(commentID) {
		comment, ok := framer.(id3v2.CommentFrame)
		if ok && comment.Description != CommentDescription {
			foreign = append(foreign, comment)
		}
	}

	id3.DeleteFrames(commentID)
	for _, comment := range foreign {
		id3.AddCommentFrame(comment)
	}

	if len(provenance) > 0 {
		id3.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: CommentDescription,
			Text:        EncodeProvenance(provenance),
		})
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
