package objectkey

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator defines how storage keys are derived for media objects
type Generator interface {
	// GenerateKey creates a storage key for a media object
	GenerateKey(mediaID uuid.UUID, metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	CreatorID string
	FileName  string
	MediaType string // "video" or "audio"

	// Rendition names a pipeline output such as "hls" or "thumbnail".
	// Empty means the original upload.
	Rendition string
}

// FlatGenerator keys every object directly under its media id:
// media/{mediaID}/{filename}
type FlatGenerator struct{}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{}
}

func (g *FlatGenerator) GenerateKey(mediaID uuid.UUID, metadata *KeyMetadata) string {
	key := fmt.Sprintf("media/%s", mediaID)
	if metadata != nil && metadata.Rendition != "" {
		key = fmt.Sprintf("%s/%s", key, sanitizePathComponent(metadata.Rendition))
	}
	if metadata != nil && metadata.FileName != "" {
		return fmt.Sprintf("%s/%s", key, sanitizeFilename(metadata.FileName))
	}
	return key
}

// GitLikeGenerator shards keys by the leading characters of the media id,
// grouped per creator.
// Original:  media/{creator}/ab/cd1234ef5678_filename
// Rendition: media/{creator}/renditions/{rendition}/ab/cd1234ef5678_filename
type GitLikeGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewGitLikeGenerator() *GitLikeGenerator {
	return &GitLikeGenerator{ShardLength: 2}
}

func (g *GitLikeGenerator) GenerateKey(mediaID uuid.UUID, metadata *KeyMetadata) string {
	id := strings.ReplaceAll(mediaID.String(), "-", "")

	shard := g.ShardLength
	if shard <= 0 || shard > len(id) {
		shard = 2
	}
	shardDir, remaining := id[:shard], id[shard:]

	filename := remaining
	if metadata != nil && metadata.FileName != "" {
		filename = fmt.Sprintf("%s_%s", remaining, sanitizeFilename(metadata.FileName))
	}

	creator := "anonymous"
	if metadata != nil && metadata.CreatorID != "" {
		creator = sanitizePathComponent(metadata.CreatorID)
	}

	if metadata != nil && metadata.Rendition != "" {
		return fmt.Sprintf("media/%s/renditions/%s/%s/%s",
			creator, sanitizePathComponent(metadata.Rendition), shardDir, filename)
	}
	return fmt.Sprintf("media/%s/%s/%s", creator, shardDir, filename)
}

// FuncGenerator allows callers to provide their own key function
type FuncGenerator func(mediaID uuid.UUID, metadata *KeyMetadata) string

func (f FuncGenerator) GenerateKey(mediaID uuid.UUID, metadata *KeyMetadata) string {
	return f(mediaID, metadata)
}

// New returns the generator for a named strategy: "git" (default) or "flat".
func New(strategy string) (Generator, error) {
	switch strategy {
	case "", "git":
		return NewGitLikeGenerator(), nil
	case "flat":
		return NewFlatGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown object key strategy: %s", strategy)
	}
}

var unsafeChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

func sanitizeFilename(filename string) string {
	return unsafeChars.Replace(filename)
}

func sanitizePathComponent(component string) string {
	return strings.ToLower(unsafeChars.Replace(component))
}
