// Package audit is the append-only decision log keyed by application id.
package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/models"

	"github.com/google/uuid"
)

// Recorder exposes append and list only. Corrections are new entries that
// reference the superseded one.
type Recorder interface {
	Append(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error)
	ListFor(ctx context.Context, applicationID string) ([]models.AuditEntry, error)
}

// Prepare validates an entry and fills its id and timestamp.
func Prepare(entry models.AuditEntry, now time.Time) (models.AuditEntry, error) {
	if strings.TrimSpace(entry.ApplicationID) == "" {
		return entry, apperrors.NewMissingFieldError("applicationId")
	}
	if entry.Action == "" {
		return entry, apperrors.NewMissingFieldError("action")
	}
	if entry.PerformedBy.Role == "" {
		return entry, apperrors.NewMissingFieldError("performedBy.role")
	}
	entry.Remarks = strings.TrimSpace(entry.Remarks)
	if entry.Action.RequiresRemarks() && entry.Remarks == "" {
		return entry, apperrors.NewMissingFieldError("remarks")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = now.UTC()
	}
	return entry, nil
}

// Supersede builds a correction entry pointing at prev.
func Supersede(prev models.AuditEntry, actor models.Actor, remarks string) models.AuditEntry {
	return models.AuditEntry{
		ApplicationID: prev.ApplicationID,
		Action:        models.ActionCorrection,
		PerformedBy:   actor,
		Remarks:       remarks,
		SupersedesID:  prev.ID,
	}
}

// MemoryRecorder keeps entries in process. Safe for concurrent use.
type MemoryRecorder struct {
	mu      sync.RWMutex
	entries map[string][]models.AuditEntry
	ids     map[string]string // entry id -> application id
	now     func() time.Time
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		entries: make(map[string][]models.AuditEntry),
		ids:     make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryRecorder) Append(_ context.Context, entry models.AuditEntry) (models.AuditEntry, error) {
	entry, err := Prepare(entry, r.now())
	if err != nil {
		return entry, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.SupersedesID != "" {
		if appID, ok := r.ids[entry.SupersedesID]; !ok || appID != entry.ApplicationID {
			return entry, apperrors.NewNotFoundError("audit entry", entry.SupersedesID)
		}
	}
	r.entries[entry.ApplicationID] = append(r.entries[entry.ApplicationID], entry)
	r.ids[entry.ID] = entry.ApplicationID
	return entry, nil
}

func (r *MemoryRecorder) ListFor(_ context.Context, applicationID string) ([]models.AuditEntry, error) {
	r.mu.RLock()
	out := append([]models.AuditEntry(nil), r.entries[applicationID]...)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PerformedAt.Before(out[j].PerformedAt)
	})
	return out, nil
}
