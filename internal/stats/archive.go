package stats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Archive keeps rendered reports on disk as report_<seq>_<unix>.json so
// the latest run can be shown without hitting the store.
type Archive struct {
	dir string
}

func NewArchive(dir string) *Archive {
	return &Archive{dir: dir}
}

type archived struct {
	path string
	seq  uint64
}

// Save assigns the next sequence number to rep and writes it.
func (a *Archive) Save(rep *Report) error {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}

	files, err := a.list()
	if err != nil {
		return err
	}
	rep.Seq = 1
	if len(files) > 0 {
		rep.Seq = files[0].seq + 1
	}

	path := filepath.Join(a.dir, fmt.Sprintf("report_%d_%d.json", rep.Seq, rep.GeneratedAt.Unix()))
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	slog.Info("Report archived", slog.Uint64("seq", rep.Seq), slog.String("path", path))
	return nil
}

// LoadLatest returns the report with the highest sequence, or nil when the
// archive is empty.
func (a *Archive) LoadLatest() (*Report, error) {
	files, err := a.list()
	if err != nil || len(files) == 0 {
		return nil, err
	}

	data, err := os.ReadFile(files[0].path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &rep, nil
}

// Cleanup removes all but the newest keep reports.
func (a *Archive) Cleanup(keep int) error {
	files, err := a.list()
	if err != nil {
		return err
	}
	if len(files) <= keep {
		return nil
	}
	for _, f := range files[keep:] {
		if err := os.Remove(f.path); err != nil {
			slog.Warn("Failed to remove old report", slog.String("path", f.path), slog.Any("error", err))
			continue
		}
		slog.Info("Removed old report", slog.String("path", f.path))
	}
	return nil
}

// list returns the archived reports, newest first.
func (a *Archive) list() ([]archived, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read report dir: %w", err)
	}

	var files []archived
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var (
			seq uint64
			ts  int64
		)
		if _, err := fmt.Sscanf(e.Name(), "report_%d_%d.json", &seq, &ts); err != nil {
			continue
		}
		files = append(files, archived{path: filepath.Join(a.dir, e.Name()), seq: seq})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].seq > files[j].seq })
	return files, nil
}
