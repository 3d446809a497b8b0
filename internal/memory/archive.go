package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/easeaico/npc-heart/internal/emotion"
)

// ArchiveKind distinguishes raw events from model-written reflections.
type ArchiveKind string

const (
	KindEvent      ArchiveKind = "event"
	KindReflection ArchiveKind = "reflection"
)

// ArchivedEvent is a significant memory stored for long-term recall.
type ArchivedEvent struct {
	NPCID       string
	EventID     string
	Kind        ArchiveKind
	EventType   emotion.EventType
	Description string
	Impact      map[string]float64
	Salience    float64
	OccurredAt  time.Time
	Embedding   []float32
}

// RecalledEvent is an archived event returned by similarity search.
type RecalledEvent struct {
	EventID     string
	Kind        ArchiveKind
	Description string
	Salience    float64
	Similarity  float64
	OccurredAt  time.Time
}

// ArchiveRepo persists archived events.
type ArchiveRepo interface {
	ArchivedEventIDs(ctx context.Context, npcID string, eventIDs []string) (map[string]bool, error)
	AddArchivedEvents(ctx context.Context, events []ArchivedEvent) error
	SearchSimilar(ctx context.Context, npcID string, embedding []float32, topK int, threshold float64) ([]RecalledEvent, error)
}

// Archiver moves significant events into the archive. It is run periodically and is
// idempotent by event id.
type Archiver struct {
	embedder            Embedder
	archive             ArchiveRepo
	reflector           *Reflector
	topK                int
	similarityThreshold float64
}

// NewArchiver returns an Archiver. embedder and reflector may be nil.
func NewArchiver(embedder Embedder, archive ArchiveRepo, reflector *Reflector, topK int, threshold float64) *Archiver {
	if topK <= 0 {
		topK = 5
	}
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Archiver{
		embedder:            embedder,
		archive:             archive,
		reflector:           reflector,
		topK:                topK,
		similarityThreshold: threshold,
	}
}

// Consolidate archives the significant events of mem not yet stored and returns how many
// were written.
func (a *Archiver) Consolidate(ctx context.Context, npcID string, mem *emotion.EmotionalMemory) (int, error) {
	if a == nil || a.archive == nil {
		return 0, nil
	}
	events := mem.SignificantEvents()
	if len(events) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	stored, err := a.archive.ArchivedEventIDs(ctx, npcID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load archived ids: %w", err)
	}

	var fresh []emotion.EmotionalEvent
	for _, e := range events {
		if e.ID != "" && !stored[e.ID] {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	records := make([]ArchivedEvent, 0, len(fresh)+1)
	for _, e := range fresh {
		records = append(records, ArchivedEvent{
			NPCID:       npcID,
			EventID:     e.ID,
			Kind:        KindEvent,
			EventType:   e.Type,
			Description: e.Description,
			Impact:      e.Impact,
			Salience:    EventSalience(e),
			OccurredAt:  e.Timestamp,
		})
	}

	if a.reflector != nil {
		reflection, err := a.reflector.Reflect(ctx, npcID, fresh)
		if err != nil {
			slog.Warn("failed to reflect on memories", "npc_id", npcID, "error", err.Error())
		} else {
			records = append(records, reflection)
		}
	}

	if err := a.embed(ctx, records); err != nil {
		return 0, err
	}
	if err := a.archive.AddArchivedEvents(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to archive events: %w", err)
	}
	return len(records), nil
}

func (a *Archiver) embed(ctx context.Context, records []ArchivedEvent) error {
	if a.embedder == nil {
		return nil
	}
	texts := make([]string, 0, len(records))
	for _, r := range records {
		texts = append(texts, buildEmbeddingText(r))
	}
	vectors, err := a.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed archived events: %w", err)
	}
	for i := range records {
		if i < len(vectors) {
			records[i].Embedding = vectors[i]
		}
	}
	return nil
}

// Recall returns archived memories similar to query, strongest first.
func (a *Archiver) Recall(ctx context.Context, npcID, query string) ([]RecalledEvent, error) {
	if query == "" {
		return nil, nil
	}
	if a == nil || a.embedder == nil || a.archive == nil {
		return nil, fmt.Errorf("archiver not properly configured")
	}

	vec, err := a.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return a.archive.SearchSimilar(ctx, npcID, vec, a.topK, a.similarityThreshold)
}

// buildEmbeddingText joins the description with the strongest impacts.
func buildEmbeddingText(r ArchivedEvent) string {
	var sb strings.Builder
	sb.WriteString(r.Description)
	if len(r.Impact) == 0 {
		return sb.String()
	}

	names := make([]string, 0, len(r.Impact))
	for name := range r.Impact {
		names = append(names, name)
	}
	sort.Strings(names)
	sb.WriteString("\nfeelings: ")
	for i, name := range names {
		if i > 0 {
			sb.WriteString(" ; ")
		}
		fmt.Fprintf(&sb, "%s %.2f", name, r.Impact[name])
	}
	return sb.String()
}
