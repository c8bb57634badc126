package domain

import "time"

// AssetKind enumerates asset types.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
	AssetKindThumb AssetKind = "thumb"
)

// IsValid reports whether k is a known asset kind.
func (k AssetKind) IsValid() bool {
	switch k {
	case AssetKindImage, AssetKindVideo, AssetKindThumb:
		return true
	}
	return false
}

// Asset is a binary artifact: an uploaded reference image, a downloaded
// result video, or a thumbnail derived from one. A thumb always carries the
// id of the job whose video it was derived from; a standalone reference image
// may have no job reference.
type Asset struct {
	ID        string
	Kind      AssetKind
	MIME      string
	Name      string
	Bytes     int64
	Data      []byte
	JobID     string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Clone returns a copy whose metadata map does not alias the original. Asset
// payload bytes are shared; callers treat Data as read-only.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Metadata != nil {
		cp.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
