package usecase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/circuit-microservice/internal/domain"
	"github.com/circuit-microservice/internal/pkg/errors"
	"github.com/circuit-microservice/internal/usecase/dto"
)

func TestMapUseCase_LoadGeoJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("drops features without identity", func(t *testing.T) {
		f := newCircuitFixture(t, 15)

		raw := []byte(`{
			"type": "FeatureCollection",
			"features": [
				{"type": "Feature", "id": "poi-1", "properties": {"Nom": "Alpha"}, "geometry": {"type": "Point", "coordinates": [10.0, 33.0]}},
				{"type": "Feature", "properties": {"Nom": "Anonyme"}, "geometry": {"type": "Point", "coordinates": [10.1, 33.1]}},
				{"type": "Feature", "properties": {"HW_ID": "poi-2", "Nom": "Bravo"}, "geometry": {"type": "Point", "coordinates": [10.2, 33.2]}}
			]
		}`)

		loaded, dropped, err := f.maps.LoadGeoJSON(ctx, testMapID, raw)
		require.NoError(t, err)
		assert.Equal(t, 2, loaded)
		assert.Equal(t, 1, dropped)

		// The dropped feature cannot participate in circuits
		_, err = f.uc.AddPoi(ctx, testMapID, "poi-1")
		require.NoError(t, err)
		_, err = f.uc.AddPoi(ctx, testMapID, "poi-2")
		require.NoError(t, err)
	})

	t.Run("rejects broken geojson", func(t *testing.T) {
		f := newCircuitFixture(t, 15)

		_, _, err := f.maps.LoadGeoJSON(ctx, testMapID, []byte(`{"nope`))
		assert.Equal(t, errors.ErrGeoJSONMalformed, err)
	})

	t.Run("named polygons assign zone labels", func(t *testing.T) {
		f := newCircuitFixture(t, 15)

		raw := []byte(`{
			"type": "FeatureCollection",
			"features": [
				{"type": "Feature", "properties": {"Nom": "Medina"}, "geometry": {"type": "Polygon", "coordinates": [[[10.0, 33.0], [10.1, 33.0], [10.1, 33.1], [10.0, 33.1], [10.0, 33.0]]]}},
				{"type": "Feature", "id": "poi-in", "properties": {"Nom": "Souk"}, "geometry": {"type": "Point", "coordinates": [10.05, 33.05]}},
				{"type": "Feature", "id": "poi-out", "properties": {"Nom": "Phare"}, "geometry": {"type": "Point", "coordinates": [10.5, 33.5]}}
			]
		}`)

		loaded, dropped, err := f.maps.LoadGeoJSON(ctx, testMapID, raw)
		require.NoError(t, err)
		assert.Equal(t, 2, loaded)
		// The id-less polygon itself is a zone, not a POI
		assert.Equal(t, 1, dropped)

		f.annotationRepo.On("GetAllByMap", mock.Anything, testMapID).
			Return(map[string]domain.UserData{}, nil)
		f.circuitRepo.On("GetAllByMap", mock.Anything, testMapID, false).
			Return([]*domain.Circuit{}, nil)

		backup, err := f.maps.ExportBackup(ctx, testMapID)
		require.NoError(t, err)
		require.NotNil(t, backup.BaseGeoJSON)

		zones := map[string]interface{}{}
		for _, feat := range backup.BaseGeoJSON.Features {
			zones[domain.PoiID(feat)] = feat.Properties["zone"]
		}
		assert.Equal(t, "Medina", zones["poi-in"])
		assert.Equal(t, "Hors zone", zones["poi-out"])
	})

	t.Run("map without polygons leaves zones uncomputed", func(t *testing.T) {
		f := newCircuitFixture(t, 15)

		raw := []byte(`{
			"type": "FeatureCollection",
			"features": [
				{"type": "Feature", "id": "poi-1", "properties": {"Nom": "Alpha"}, "geometry": {"type": "Point", "coordinates": [10.0, 33.0]}}
			]
		}`)

		_, _, err := f.maps.LoadGeoJSON(ctx, testMapID, raw)
		require.NoError(t, err)

		f.annotationRepo.On("GetAllByMap", mock.Anything, testMapID).
			Return(map[string]domain.UserData{}, nil)
		f.circuitRepo.On("GetAllByMap", mock.Anything, testMapID, false).
			Return([]*domain.Circuit{}, nil)

		backup, err := f.maps.ExportBackup(ctx, testMapID)
		require.NoError(t, err)
		require.Len(t, backup.BaseGeoJSON.Features, 1)
		assert.NotContains(t, backup.BaseGeoJSON.Features[0].Properties, "zone")
	})
}

func TestMapUseCase_Annotate(t *testing.T) {
	ctx := context.Background()

	t.Run("merges and logs each changed field", func(t *testing.T) {
		f := newCircuitFixture(t, 15, "Alpha")
		f.annotationRepo.On("GetByPoi", mock.Anything, testMapID, "poi-1").
			Return(domain.UserData{"notes": "old note", "visited": true}, nil)
		f.annotationRepo.On("Put", mock.Anything, testMapID, "poi-1", mock.Anything).Return(nil)

		var logged []domain.ModLogEntry
		f.modLogRepo.On("Append", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				logged = append(logged, args.Get(1).(domain.ModLogEntry))
			}).Return(nil)

		merged, err := f.maps.Annotate(ctx, testMapID, "poi-1", dto.AnnotateRequest{
			Data: domain.UserData{
				"notes":   "new note",
				"visited": true, // unchanged, must not be logged
				"price":   "25",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "new note", merged["notes"])
		assert.Equal(t, true, merged["visited"])
		assert.Equal(t, "25", merged["price"])

		require.Len(t, logged, 2)
		byField := map[string]domain.ModLogEntry{}
		for _, e := range logged {
			byField[e.Field] = e
		}
		assert.Equal(t, domain.ModActionUpdate, byField["notes"].Action)
		assert.Equal(t, "old note", byField["notes"].OldValue)
		assert.Equal(t, "new note", byField["notes"].NewValue)
		assert.Equal(t, domain.ModActionCreate, byField["price"].Action)
		assert.Equal(t, "Alpha", byField["price"].PoiName)
	})

	t.Run("unknown poi on a loaded map is refused", func(t *testing.T) {
		f := newCircuitFixture(t, 15, "Alpha")

		_, err := f.maps.Annotate(ctx, testMapID, "ghost", dto.AnnotateRequest{
			Data: domain.UserData{"notes": "x"},
		})
		assert.Equal(t, errors.ErrPoiNotIdentified, err)
	})
}

func TestMapUseCase_ExportBackup(t *testing.T) {
	ctx := context.Background()

	f := newCircuitFixture(t, 15, "Alpha", "Bravo")
	f.annotationRepo.On("GetAllByMap", mock.Anything, testMapID).Return(map[string]domain.UserData{
		"poi-1": {"notes": "seen", "hidden": true},
		"poi-2": {"visited": true},
	}, nil)
	f.circuitRepo.On("GetAllByMap", mock.Anything, testMapID, false).Return([]*domain.Circuit{
		{ID: "HW-1", MapID: testMapID, PoiIDs: []string{"poi-1", "poi-2"}},
	}, nil)

	backup, err := f.maps.ExportBackup(ctx, testMapID)
	require.NoError(t, err)

	assert.NotEmpty(t, backup.BackupVersion)
	assert.Len(t, backup.UserData, 2)
	assert.Len(t, backup.MyCircuits, 1)
	assert.Equal(t, []string{"poi-1"}, backup.HiddenPoiIDs)
	require.NotNil(t, backup.BaseGeoJSON)
	assert.Len(t, backup.BaseGeoJSON.Features, 2)

	// The export must round-trip through the backup detector
	raw, err := json.Marshal(backup)
	require.NoError(t, err)
	assert.True(t, domain.IsBackup(raw))
}

func TestMapUseCase_RecoverDraft(t *testing.T) {
	ctx := context.Background()

	t.Run("restores the saved slot", func(t *testing.T) {
		f := newCircuitFixture(t, 15, "Alpha", "Bravo")
		slot, err := json.Marshal(domain.Circuit{MapID: testMapID, PoiIDs: []string{"poi-1"}})
		require.NoError(t, err)
		f.cacheRepo.On("Get", mock.Anything, "draft:"+testMapID).Return(slot, nil)

		draft, err := f.maps.RecoverDraft(ctx, testMapID)
		require.NoError(t, err)
		require.NotNil(t, draft)
		assert.Equal(t, []string{"poi-1"}, draft.PoiIDs)

		// The recovered draft is live again
		resp, err := f.uc.AddPoi(ctx, testMapID, "poi-2")
		require.NoError(t, err)
		assert.Equal(t, []string{"poi-1", "poi-2"}, resp.Circuit.PoiIDs)
	})

	t.Run("empty slot is not an error", func(t *testing.T) {
		f := newCircuitFixture(t, 15)
		f.cacheRepo.On("Get", mock.Anything, "draft:"+testMapID).Return(nil, nil)

		draft, err := f.maps.RecoverDraft(ctx, testMapID)
		require.NoError(t, err)
		assert.Nil(t, draft)
	})
}

func TestMapUseCase_PoiClusters(t *testing.T) {
	ctx := context.Background()

	t.Run("groups nearby pois and flags the far one", func(t *testing.T) {
		f := newCircuitFixture(t, 15)

		// Nine POIs packed within ~100 m, one a degree of latitude away
		fc := geojson.NewFeatureCollection()
		for i := 0; i < 9; i++ {
			feat := geojson.NewFeature(orb.Point{10.0, 33.0 + float64(i)*0.0001})
			feat.ID = fmt.Sprintf("poi-%d", i+1)
			feat.Properties["Nom"] = fmt.Sprintf("POI %d", i+1)
			fc.Append(feat)
		}
		far := geojson.NewFeature(orb.Point{10.0, 34.0})
		far.ID = "poi-far"
		far.Properties["Nom"] = "Loin"
		fc.Append(far)

		raw, err := fc.MarshalJSON()
		require.NoError(t, err)
		_, _, err = f.maps.LoadGeoJSON(ctx, testMapID, raw)
		require.NoError(t, err)

		resp, err := f.maps.PoiClusters(ctx, testMapID)
		require.NoError(t, err)

		assert.Equal(t, []string{"poi-far"}, resp.OutlierPoiIDs)
		require.Len(t, resp.Clusters, 1)
		assert.Len(t, resp.Clusters[0].PoiIDs, 9)
		assert.InDelta(t, 33.0004, resp.Clusters[0].Center.Lat, 0.0001)
		assert.InDelta(t, 10.0, resp.Clusters[0].Center.Lon, 0.0001)
	})

	t.Run("separate groups beyond the threshold", func(t *testing.T) {
		f := newCircuitFixture(t, 15)

		fc := geojson.NewFeatureCollection()
		coords := [][2]float64{{33.0, 10.0}, {33.0001, 10.0}, {33.01, 10.0}, {33.0101, 10.0}}
		for i, c := range coords {
			feat := geojson.NewFeature(orb.Point{c[1], c[0]})
			feat.ID = fmt.Sprintf("poi-%d", i+1)
			fc.Append(feat)
		}

		raw, err := fc.MarshalJSON()
		require.NoError(t, err)
		_, _, err = f.maps.LoadGeoJSON(ctx, testMapID, raw)
		require.NoError(t, err)

		resp, err := f.maps.PoiClusters(ctx, testMapID)
		require.NoError(t, err)

		assert.Empty(t, resp.OutlierPoiIDs)
		assert.Len(t, resp.Clusters, 2)
	})

	t.Run("empty map yields empty result", func(t *testing.T) {
		f := newCircuitFixture(t, 15)

		resp, err := f.maps.PoiClusters(ctx, testMapID)
		require.NoError(t, err)
		assert.Empty(t, resp.Clusters)
		assert.Empty(t, resp.OutlierPoiIDs)
	})
}
