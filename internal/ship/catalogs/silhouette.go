package catalogs

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

// Silhouette is the preferred overall hull outline of a faction style.
type Silhouette uint8

const (
	SilhouetteAny Silhouette = iota
	SilhouetteSleek
	SilhouetteBlocky
	SilhouetteWide
	SilhouetteTall
)

var silhouetteNames = [...]string{
	SilhouetteAny:    "any",
	SilhouetteSleek:  "sleek",
	SilhouetteBlocky: "blocky",
	SilhouetteWide:   "wide",
	SilhouetteTall:   "tall",
}

func (s Silhouette) String() string {
	if int(s) < len(silhouetteNames) {
		return silhouetteNames[s]
	}
	return fmt.Sprintf("Silhouette(%d)", uint8(s))
}

func ParseSilhouette(v string) (Silhouette, error) {
	key := strings.ToLower(strings.TrimSpace(v))
	if key == "" {
		return SilhouetteAny, nil
	}
	for i, n := range silhouetteNames {
		if n == key {
			return Silhouette(i), nil
		}
	}
	return SilhouetteAny, fmt.Errorf("catalogs: unknown silhouette %q", v)
}

func (s Silhouette) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Silhouette) UnmarshalText(b []byte) error {
	v, err := ParseSilhouette(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

//go:embed defaults/*.json
var defaultsFS embed.FS

// Defaults returns the built-in catalogs (the same content as configs/).
func Defaults() *Catalogs {
	sub, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		panic(err)
	}
	c, err := LoadFS(sub)
	if err != nil {
		panic(fmt.Sprintf("catalogs: built-in defaults: %v", err))
	}
	return c
}
