package ports

// AssetKind narrows an asset lookup to a catalog section.
type AssetKind string

const (
	AssetBackground AssetKind = "background"
	AssetCharacter  AssetKind = "character"
	AssetAudio      AssetKind = "audio"
	AssetMovie      AssetKind = "movie"
	AssetImage      AssetKind = "image"
)

// AssetMetadata is the playback-relevant part of a catalog entry.
type AssetMetadata struct {
	IsVideo bool
	Loop    bool

	// Name is the display name authors see; the condition evaluator also
	// matches it when a variable holds the internal asset id.
	Name string
}

// AssetResolver maps asset ids to playable locations and metadata. A miss
// returns ("", false): the interpreter logs the dangling reference and
// degrades to an immediate advance, never a halt.
type AssetResolver interface {
	// ResolveURL returns a URL or path the presentation layer can load.
	ResolveURL(assetID string, kind AssetKind) (string, bool)

	// Metadata returns catalog data for an asset id.
	Metadata(assetID string, kind AssetKind) (AssetMetadata, bool)
}
