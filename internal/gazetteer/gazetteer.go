// Package gazetteer maps geography ids to display names using TIGER/Line
// shapefile attributes, so bulk adjustment tables can be labeled.
package gazetteer

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Attribute field names carried by TIGER/Line products.
const (
	geoidField = "geoid"
	nameField  = "name"
)

// Gazetteer holds a geography id → name mapping.
type Gazetteer struct {
	names map[string]string
}

// Load reads GEOID and NAME attributes from a TIGER/Line shapefile.
func Load(shpPath string) (*Gazetteer, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "gazetteer: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	geoidIdx, ok := fieldIdx[geoidField]
	if !ok {
		return nil, eris.Errorf("gazetteer: shapefile %s has no GEOID field", shpPath)
	}
	nameIdx, ok := fieldIdx[nameField]
	if !ok {
		return nil, eris.Errorf("gazetteer: shapefile %s has no NAME field", shpPath)
	}

	names := make(map[string]string)
	var skipped int
	for reader.Next() {
		geoid := cleanAttr(reader.Attribute(geoidIdx))
		name := cleanAttr(reader.Attribute(nameIdx))
		if geoid == "" || name == "" {
			skipped++
			continue
		}
		names[geoid] = name
	}

	if skipped > 0 {
		zap.L().Debug("gazetteer: skipped records without geoid or name",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return &Gazetteer{names: names}, nil
}

// Name returns the display name for a geography id, or "" when unknown.
func (g *Gazetteer) Name(geoID string) string {
	return g.names[geoID]
}

// Len returns the number of named geographies.
func (g *Gazetteer) Len() int {
	return len(g.names)
}

func cleanAttr(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}
