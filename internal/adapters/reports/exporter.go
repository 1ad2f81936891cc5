// Package reports exports the record tables as CSV artifacts into a blob
// store, mirroring the downloadable table views of the record-keeping pages.
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/tytell/fishdb/internal/blob"
	"github.com/tytell/fishdb/pkg/domain"
)

// Artifact describes one exported table.
type Artifact struct {
	Table string    `json:"table"`
	Key   string    `json:"key"`
	Rows  int       `json:"rows"`
	Info  blob.Info `json:"info"`
}

// Exporter renders tables to CSV and stores them as blobs under a dated
// prefix.
type Exporter struct {
	store domain.PersistentStore
	blobs blob.Store
	now   func() time.Time
}

// NewExporter constructs an exporter over the given stores.
func NewExporter(store domain.PersistentStore, blobs blob.Store) *Exporter {
	return &Exporter{
		store: store,
		blobs: blobs,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the export clock, for tests.
func (e *Exporter) SetNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

type table struct {
	name   string
	header []string
	rows   func() [][]string
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.TimeLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefStatus(s *domain.FishStatus) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func derefDeath(d *domain.DeathStatus) string {
	if d == nil {
		return ""
	}
	return string(*d)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (e *Exporter) tables() []table {
	return []table{
		{
			name:   "fish",
			header: []string{"id", "species", "tank", "status", "number_in_group", "collection"},
			rows: func() [][]string {
				var out [][]string
				for _, f := range e.store.ListFish() {
					out = append(out, []string{f.ID, f.Species, deref(f.Tank), string(f.Status), strconv.Itoa(f.NumberInGroup), f.Collection})
				}
				return out
			},
		},
		{
			name:   "tanks",
			header: []string{"name", "volume", "is_hospital", "system", "shelf", "position_in_shelf", "active"},
			rows: func() [][]string {
				var out [][]string
				for _, t := range e.store.ListTanks() {
					out = append(out, []string{t.Name, formatFloat(t.Volume), strconv.FormatBool(t.IsHospital), deref(t.System), strconv.Itoa(t.Shelf), strconv.Itoa(t.PositionInShelf), strconv.FormatBool(t.Active)})
				}
				return out
			},
		},
		{
			name:   "systems",
			header: []string{"name", "max_volume", "active"},
			rows: func() [][]string {
				var out [][]string
				for _, sys := range e.store.ListSystems() {
					out = append(out, []string{sys.Name, formatFloat(sys.MaxVolume), strconv.FormatBool(sys.Active)})
				}
				return out
			},
		},
		{
			name:   "feeding",
			header: []string{"date", "by", "fish", "fed", "ate", "notes"},
			rows: func() [][]string {
				var out [][]string
				for _, ev := range e.store.ListFeedingEvents() {
					out = append(out, []string{formatTime(ev.Date), ev.Person, ev.Fish, strconv.FormatBool(ev.Fed), strconv.FormatBool(ev.Ate), ev.Notes})
				}
				return out
			},
		},
		{
			name:   "health",
			header: []string{"date", "by", "fish", "event_type", "from_tank", "to_tank", "treatment", "change_status", "death_status", "notes"},
			rows: func() [][]string {
				var out [][]string
				for _, ev := range e.store.ListHealthEvents() {
					out = append(out, []string{formatTime(ev.Date), ev.Person, ev.Fish, string(ev.EventType), deref(ev.FromTank), deref(ev.ToTank), deref(ev.Treatment), derefStatus(ev.ChangeStatus), derefDeath(ev.DeathStatus), ev.Notes})
				}
				return out
			},
		},
		{
			name:   "water_quality",
			header: []string{"date", "by", "system", "tank", "conductivity", "ph", "ammonia", "nitrite", "nitrate", "water_change_pct", "notes"},
			rows: func() [][]string {
				var out [][]string
				for _, ev := range e.store.ListWaterQualityEvents() {
					out = append(out, []string{formatTime(ev.Date), ev.Person, deref(ev.System), deref(ev.Tank), formatFloat(ev.Conductivity), formatFloat(ev.PH), formatFloat(ev.Ammonia), formatFloat(ev.Nitrite), formatFloat(ev.Nitrate), formatFloat(ev.WaterChangePct), ev.Notes})
				}
				return out
			},
		},
		{
			name:   "maintenance",
			header: []string{"date", "by", "task", "system", "notes"},
			rows: func() [][]string {
				var out [][]string
				for _, ev := range e.store.ListMaintenanceEvents() {
					out = append(out, []string{formatTime(ev.Date), ev.Person, ev.Task, deref(ev.System), ev.Notes})
				}
				return out
			},
		},
		{
			name:   "groups",
			header: []string{"date", "by", "event_type", "original_group", "number_in_group", "group_1", "group_2", "group_3", "group_4", "notes"},
			rows: func() [][]string {
				var out [][]string
				for _, ev := range e.store.ListGroupEvents() {
					groups := make([]string, domain.MaxGroupFanout)
					for i, g := range ev.Groups {
						if i >= domain.MaxGroupFanout {
							break
						}
						groups[i] = g
					}
					row := []string{formatTime(ev.Date), ev.Person, string(ev.EventType), ev.OriginalGroup, strconv.Itoa(ev.NumberInGroup)}
					row = append(row, groups...)
					row = append(row, ev.Notes)
					out = append(out, row)
				}
				return out
			},
		},
		{
			name:   "experiments",
			header: []string{"date", "by", "fish", "project", "project_description", "experiment_description", "is_terminal", "n_fish"},
			rows: func() [][]string {
				var out [][]string
				for _, ev := range e.store.ListExperiments() {
					out = append(out, []string{formatTime(ev.Date), ev.Person, ev.Fish, ev.Project, ev.ProjectDescription, ev.ExperimentDescription, strconv.FormatBool(ev.IsTerminal), strconv.Itoa(ev.NFish)})
				}
				return out
			},
		},
	}
}

// ExportAll renders every table under exports/<timestamp>/<table>.csv and
// returns one artifact per table.
func (e *Exporter) ExportAll(ctx context.Context) ([]Artifact, error) {
	prefix := fmt.Sprintf("exports/%s", e.now().Format("20060102T150405Z"))
	var artifacts []Artifact
	for _, tbl := range e.tables() {
		artifact, err := e.exportTable(ctx, prefix, tbl)
		if err != nil {
			return artifacts, fmt.Errorf("export %s: %w", tbl.name, err)
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}

// ExportTable renders a single named table. Unknown names error.
func (e *Exporter) ExportTable(ctx context.Context, name string) (Artifact, error) {
	prefix := fmt.Sprintf("exports/%s", e.now().Format("20060102T150405Z"))
	for _, tbl := range e.tables() {
		if tbl.name == name {
			return e.exportTable(ctx, prefix, tbl)
		}
	}
	return Artifact{}, fmt.Errorf("unknown table %q", name)
}

func (e *Exporter) exportTable(ctx context.Context, prefix string, tbl table) (Artifact, error) {
	rows := tbl.rows()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(tbl.header); err != nil {
		return Artifact{}, err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return Artifact{}, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Artifact{}, err
	}

	key := fmt.Sprintf("%s/%s.csv", prefix, tbl.name)
	info, err := e.blobs.Put(ctx, key, &buf, blob.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"table": tbl.name, "rows": strconv.Itoa(len(rows))},
	})
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Table: tbl.name, Key: key, Rows: len(rows), Info: info}, nil
}
