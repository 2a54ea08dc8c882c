package usecase_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/config"
	"github.com/circuit-microservice/internal/domain"
	"github.com/circuit-microservice/internal/pkg/errors"
	"github.com/circuit-microservice/internal/usecase"
	"github.com/circuit-microservice/internal/usecase/dto"
)

func newFusionUseCase() *usecase.FusionUseCase {
	cfg := &config.FusionConfig{
		GPSCorrectionThreshold: 5,
		CurrencySuffix:         " MAD",
	}
	return usecase.NewFusionUseCase(cfg, zap.NewNop())
}

func fusionSource(t *testing.T) json.RawMessage {
	fc := geojson.NewFeatureCollection()

	musee := geojson.NewFeature(orb.Point{10.0, 33.0})
	musee.ID = "poi-1"
	musee.Properties["Nom"] = "Musée"
	fc.Append(musee)

	plage := geojson.NewFeature(orb.Point{10.01, 33.01})
	plage.ID = "poi-2"
	plage.Properties["Nom"] = "Plage"
	fc.Append(plage)

	data, err := fc.MarshalJSON()
	require.NoError(t, err)
	return data
}

func fusionBackup(t *testing.T) json.RawMessage {
	base := geojson.NewFeatureCollection()

	// Known POI: moved ~111 m north in the field
	musee := geojson.NewFeature(orb.Point{10.0, 33.001})
	musee.ID = "poi-1"
	musee.Properties["Nom"] = "Musée"
	base.Append(musee)

	plage := geojson.NewFeature(orb.Point{10.01, 33.01})
	plage.ID = "poi-2"
	plage.Properties["Nom"] = "Plage"
	base.Append(plage)

	// Unknown POI captured in the field
	cafe := geojson.NewFeature(orb.Point{10.002, 33.002})
	cafe.ID = "cafe-x"
	cafe.Properties["accuracy"] = 12.5
	base.Append(cafe)

	backup := domain.Backup{
		BackupVersion: "1.0",
		BaseGeoJSON:   base,
		UserData: map[string]domain.UserData{
			"poi-1": {"custom_title": "Musée du Patrimoine"},
			"cafe-x": {
				"custom_title": "Café X",
				"price":        "25",
				"notes":        "Bon café",
				"acces":        "difficile",
			},
		},
	}
	data, err := json.Marshal(backup)
	require.NoError(t, err)
	return data
}

func TestFusionUseCase_Analyze(t *testing.T) {
	ctx := context.Background()
	uc := newFusionUseCase()

	resp, err := uc.Analyze(ctx, dto.FusionAnalyzeRequest{
		Source: fusionSource(t),
		Backup: fusionBackup(t),
	})
	require.NoError(t, err)

	require.Len(t, resp.NewPois, 1)
	assert.Equal(t, "cafe-x", resp.NewPois[0].PoiID)
	assert.Equal(t, "Café X", resp.NewPois[0].Name)

	require.Len(t, resp.GPSCorrections, 1)
	corr := resp.GPSCorrections[0]
	assert.Equal(t, "poi-1", corr.PoiID)
	assert.Equal(t, 33.0, corr.OldLat)
	assert.Equal(t, 33.001, corr.NewLat)
	assert.InDelta(t, 111, corr.DistanceM, 1)

	require.Len(t, resp.ContentChanges, 1)
	change := resp.ContentChanges[0]
	assert.Equal(t, "poi-1", change.PoiID)
	assert.Equal(t, "custom_title", change.MobileField)
	assert.Equal(t, "Nom", change.TargetField)
	assert.Equal(t, "Musée", change.OldValue)
	assert.Equal(t, "Musée du Patrimoine", change.NewValue)

	// Fields with no canonical mapping are surfaced, never merged
	assert.Equal(t, []string{"acces"}, resp.UnmappedFields)
}

func TestFusionUseCase_Analyze_NoiseBelowThreshold(t *testing.T) {
	ctx := context.Background()
	uc := newFusionUseCase()

	// ~1 m shift: GPS noise, not a correction
	base := geojson.NewFeatureCollection()
	moved := geojson.NewFeature(orb.Point{10.0, 33.00001})
	moved.ID = "poi-1"
	base.Append(moved)

	backup := domain.Backup{
		BackupVersion: "1.0",
		BaseGeoJSON:   base,
	}
	raw, err := json.Marshal(backup)
	require.NoError(t, err)

	resp, err := uc.Analyze(ctx, dto.FusionAnalyzeRequest{
		Source: fusionSource(t),
		Backup: raw,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.GPSCorrections)
	assert.Empty(t, resp.NewPois)
}

func TestFusionUseCase_Apply(t *testing.T) {
	ctx := context.Background()
	uc := newFusionUseCase()

	selection := dto.FusionSelection{
		NewPois:        map[string]bool{"cafe-x": true},
		GPSCorrections: map[string]bool{"poi-1": true},
		ContentChanges: map[string]bool{"poi-1:custom_title": true},
	}

	resp, err := uc.Apply(ctx, dto.FusionApplyRequest{
		Source:    fusionSource(t),
		Backup:    fusionBackup(t),
		Selection: selection,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Summary.New)
	assert.Equal(t, 1, resp.Summary.GPSChanged)
	assert.Equal(t, 1, resp.Summary.ContentChanged)

	merged, err := geojson.UnmarshalFeatureCollection(resp.Merged)
	require.NoError(t, err)
	require.Len(t, merged.Features, 3)

	byID := map[string]*geojson.Feature{}
	for _, f := range merged.Features {
		byID[domain.PoiID(f)] = f
	}

	// Known POI got the new coordinates and the new name
	musee := byID["poi-1"]
	require.NotNil(t, musee)
	assert.Equal(t, "Musée du Patrimoine", musee.Properties["Nom"])
	assert.Equal(t, 33.001, musee.Geometry.(orb.Point).Lat())

	// New POI is clean: canonical fields normalized, mobile
	// bookkeeping fields stripped
	cafe := byID["cafe-x"]
	require.NotNil(t, cafe)
	assert.Equal(t, "Café X", cafe.Properties["Nom"])
	assert.Equal(t, "25 MAD", cafe.Properties["Prix"])
	assert.Equal(t, "Bon café", cafe.Properties["Notes"])
	assert.NotContains(t, cafe.Properties, "acces")
	assert.NotContains(t, cafe.Properties, "accuracy")
	assert.NotContains(t, cafe.Properties, "visited")
}

func TestFusionUseCase_Analyze_GeometryComesFromBackupFeatures(t *testing.T) {
	ctx := context.Background()
	uc := newFusionUseCase()

	// Backup features match the source exactly; stray lat/lon keys in
	// the annotations must not be mistaken for geometry
	base := geojson.NewFeatureCollection()
	musee := geojson.NewFeature(orb.Point{10.0, 33.0})
	musee.ID = "poi-1"
	base.Append(musee)

	backup := domain.Backup{
		BackupVersion: "1.0",
		BaseGeoJSON:   base,
		UserData: map[string]domain.UserData{
			"poi-1": {"lat": 48.85, "lon": 2.35, "notes": "Fermé le lundi"},
		},
	}
	raw, err := json.Marshal(backup)
	require.NoError(t, err)

	resp, err := uc.Analyze(ctx, dto.FusionAnalyzeRequest{
		Source: fusionSource(t),
		Backup: raw,
	})
	require.NoError(t, err)

	assert.Empty(t, resp.GPSCorrections)
	assert.Empty(t, resp.NewPois)
	require.Len(t, resp.ContentChanges, 1)
	assert.Equal(t, "notes", resp.ContentChanges[0].MobileField)
}

func TestFusionUseCase_Analyze_AnnotationsOnlyBackup(t *testing.T) {
	ctx := context.Background()
	uc := newFusionUseCase()

	// Without baseGeoJSON there is nothing to diff geometrically,
	// but content enrichments still apply
	backup := domain.Backup{
		BackupVersion: "1.0",
		UserData: map[string]domain.UserData{
			"poi-2": {"price": "10"},
		},
	}
	raw, err := json.Marshal(backup)
	require.NoError(t, err)

	resp, err := uc.Analyze(ctx, dto.FusionAnalyzeRequest{
		Source: fusionSource(t),
		Backup: raw,
	})
	require.NoError(t, err)

	assert.Empty(t, resp.NewPois)
	assert.Empty(t, resp.GPSCorrections)
	require.Len(t, resp.ContentChanges, 1)
	assert.Equal(t, "poi-2", resp.ContentChanges[0].PoiID)
}

func TestFusionUseCase_Apply_NothingSelected(t *testing.T) {
	ctx := context.Background()
	uc := newFusionUseCase()

	resp, err := uc.Apply(ctx, dto.FusionApplyRequest{
		Source: fusionSource(t),
		Backup: fusionBackup(t),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.FusionSummary{}, resp.Summary)

	merged, err := geojson.UnmarshalFeatureCollection(resp.Merged)
	require.NoError(t, err)
	assert.Len(t, merged.Features, 2)
}

func TestFusionUseCase_FieldCollectionScenario(t *testing.T) {
	ctx := context.Background()
	uc := newFusionUseCase()

	source := geojson.NewFeatureCollection()
	a1 := geojson.NewFeature(orb.Point{10.0, 33.0})
	a1.ID = "A1"
	source.Append(a1)
	rawSource, err := source.MarshalJSON()
	require.NoError(t, err)

	base := geojson.NewFeatureCollection()
	a1Moved := geojson.NewFeature(orb.Point{10.0, 33.001})
	a1Moved.ID = "A1"
	base.Append(a1Moved)
	b2 := geojson.NewFeature(orb.Point{10.001, 33.0005})
	b2.ID = "B2"
	base.Append(b2)

	backup := domain.Backup{
		BackupVersion: "1.0",
		BaseGeoJSON:   base,
		UserData: map[string]domain.UserData{
			"B2": {"custom_title": "Café X"},
		},
	}
	rawBackup, err := json.Marshal(backup)
	require.NoError(t, err)

	resp, err := uc.Apply(ctx, dto.FusionApplyRequest{
		Source: rawSource,
		Backup: rawBackup,
		Selection: dto.FusionSelection{
			GPSCorrections: map[string]bool{"A1": true},
			NewPois:        map[string]bool{"B2": true},
		},
	})
	require.NoError(t, err)

	merged, err := geojson.UnmarshalFeatureCollection(resp.Merged)
	require.NoError(t, err)
	require.Len(t, merged.Features, 2)

	byID := map[string]*geojson.Feature{}
	for _, f := range merged.Features {
		byID[domain.PoiID(f)] = f
	}
	assert.Equal(t, 33.001, byID["A1"].Geometry.(orb.Point).Lat())
	assert.Equal(t, "Café X", byID["B2"].Properties["Nom"])
}

func TestFusionUseCase_Apply_Deterministic(t *testing.T) {
	ctx := context.Background()
	uc := newFusionUseCase()

	req := dto.FusionApplyRequest{
		Source: fusionSource(t),
		Backup: fusionBackup(t),
		Selection: dto.FusionSelection{
			NewPois:        map[string]bool{"cafe-x": true},
			GPSCorrections: map[string]bool{"poi-1": true},
			ContentChanges: map[string]bool{"poi-1:custom_title": true},
		},
	}

	first, err := uc.Apply(ctx, req)
	require.NoError(t, err)
	second, err := uc.Apply(ctx, req)
	require.NoError(t, err)

	// Same inputs, byte-identical output, however many times it runs
	assert.Equal(t, first.Merged, second.Merged)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestFusionUseCase_MalformedInputs(t *testing.T) {
	ctx := context.Background()
	uc := newFusionUseCase()

	t.Run("broken geojson", func(t *testing.T) {
		_, err := uc.Analyze(ctx, dto.FusionAnalyzeRequest{
			Source: json.RawMessage(`{"oops`),
			Backup: fusionBackup(t),
		})
		assert.Equal(t, errors.ErrGeoJSONMalformed, err)
	})

	t.Run("arbitrary json is not a backup", func(t *testing.T) {
		_, err := uc.Analyze(ctx, dto.FusionAnalyzeRequest{
			Source: fusionSource(t),
			Backup: json.RawMessage(`{"some":"file"}`),
		})
		assert.Equal(t, errors.ErrBackupMalformed, err)
	})
}
