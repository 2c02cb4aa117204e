package db

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"memething/internal/game"
	"memething/internal/store"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionStore is the Postgres-backed record store. Optimistic locking
// rides on the version column: an update only lands when the caller's
// fetched version is still the one on record, which is exactly the
// stale-write contract the resolver retries against. Drawings and captions
// are append-then-patch rows with ON DELETE CASCADE back to their session.
type SessionStore struct {
	conn        *gorm.DB
	mu          sync.Mutex
	nextSub     int
	subscribers map[int]func(sessionID string)
}

func NewSessionStore(conn *gorm.DB) *SessionStore {
	return &SessionStore{
		conn:        conn,
		subscribers: make(map[int]func(sessionID string)),
	}
}

func (g *SessionStore) Create(s *game.Session) (*game.Session, error) {
	record, err := sessionRecord(s)
	if err != nil {
		return nil, err
	}
	record.Version = 1
	err = g.conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return logEvent(tx, record.ID, "session_created", eventPayload{
			Status:  record.Status,
			Version: record.Version,
		})
	})
	if err != nil {
		return nil, err
	}
	result := s.Clone()
	result.Version = 1
	g.notify(result.ID)
	return result, nil
}

func (g *SessionStore) Fetch(id string) (*game.Session, error) {
	var record Session
	if err := g.conn.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var drawings []Drawing
	if err := g.conn.
		Preload("Captions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("session_id = ?", id).
		Order("round_number ASC").
		Find(&drawings).Error; err != nil {
		return nil, err
	}
	return sessionAggregate(&record, drawings)
}

func (g *SessionStore) Update(s *game.Session) (*game.Session, error) {
	record, err := sessionRecord(s)
	if err != nil {
		return nil, err
	}
	nextVersion := s.Version + 1

	err = g.conn.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Session{}).
			Where("id = ? AND version = ?", s.ID, s.Version).
			Updates(map[string]any{
				"players":     record.Players,
				"status":      record.Status,
				"round_count": record.RoundCount,
				"version":     nextVersion,
				"updated_at":  time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&Session{}).Where("id = ?", s.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return store.ErrNotFound
			}
			return store.ErrStaleWrite
		}
		if err := upsertRoundContent(tx, s); err != nil {
			return err
		}
		return logEvent(tx, s.ID, "session_updated", eventPayload{
			Status:  string(s.Status),
			Version: nextVersion,
		})
	})
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent sibling landed the same row first; the caller
			// must re-derive from the fresh state.
			return nil, store.ErrStaleWrite
		}
		return nil, err
	}
	result := s.Clone()
	result.Version = nextVersion
	g.notify(result.ID)
	return result, nil
}

func (g *SessionStore) Delete(id string) error {
	res := g.conn.Delete(&Session{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	g.notify(id)
	return nil
}

func (g *SessionStore) ListByPlayer(playerID string) ([]*game.Session, error) {
	match, err := json.Marshal([]map[string]string{{"id": playerID}})
	if err != nil {
		return nil, err
	}
	var records []Session
	if err := g.conn.
		Where("players @> ?", datatypes.JSON(match)).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]*game.Session, 0, len(records))
	for i := range records {
		session, err := g.Fetch(records[i].ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		list = append(list, session)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (g *SessionStore) Subscribe(fn func(sessionID string)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextSub
	g.nextSub++
	g.subscribers[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subscribers, id)
	}
}

func (g *SessionStore) notify(sessionID string) {
	g.mu.Lock()
	fns := make([]func(string), 0, len(g.subscribers))
	for _, fn := range g.subscribers {
		fns = append(fns, fn)
	}
	g.mu.Unlock()
	for _, fn := range fns {
		fn(sessionID)
	}
}

type eventPayload struct {
	Status  string `json:"status,omitempty"`
	Version int64  `json:"version,omitempty"`
}

func logEvent(tx *gorm.DB, sessionID, eventType string, payload eventPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&Event{
		SessionID: sessionID,
		Type:      eventType,
		Payload:   datatypes.JSON(data),
	}).Error
}

// upsertRoundContent appends any new drawings and captions and patches the
// two fields that may change after creation: the drawing's winning-caption
// back-reference and the caption's won flag. Nothing is ever rewritten
// wholesale.
func upsertRoundContent(tx *gorm.DB, s *game.Session) error {
	for _, round := range s.Rounds {
		drawing := round.Drawing
		if drawing == nil {
			continue
		}
		row := Drawing{
			ID:             drawing.ID,
			SessionID:      s.ID,
			RoundNumber:    round.Number,
			Author:         drawing.Author,
			ImageKey:       drawing.ImageKey,
			WinningCaption: drawing.WinningCaption,
			CreatedAt:      drawing.CreatedAt,
		}
		if err := tx.Omit("Captions").Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
		if drawing.WinningCaption != "" {
			if err := tx.Model(&Drawing{}).
				Where("id = ?", drawing.ID).
				Update("winning_caption", drawing.WinningCaption).Error; err != nil {
				return err
			}
		}
		for _, caption := range drawing.Captions {
			captionRow := Caption{
				ID:        caption.ID,
				DrawingID: drawing.ID,
				Author:    caption.Author,
				Text:      caption.Text,
				Won:       caption.Won,
				CreatedAt: caption.CreatedAt,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&captionRow).Error; err != nil {
				return err
			}
			if caption.Won {
				if err := tx.Model(&Caption{}).
					Where("id = ?", caption.ID).
					Update("won", true).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func sessionRecord(s *game.Session) (Session, error) {
	players, err := json.Marshal(s.Players)
	if err != nil {
		return Session{}, err
	}
	return Session{
		ID:          s.ID,
		Players:     datatypes.JSON(players),
		PointsToWin: s.PointsToWin,
		MinPlayers:  s.MinPlayers,
		Status:      string(s.Status),
		RoundCount:  len(s.Rounds),
		Version:     s.Version,
		CreatedAt:   s.CreatedAt,
	}, nil
}

func sessionAggregate(record *Session, drawings []Drawing) (*game.Session, error) {
	var players []game.PlayerEntry
	if err := json.Unmarshal(record.Players, &players); err != nil {
		return nil, err
	}
	session := &game.Session{
		ID:          record.ID,
		Players:     players,
		PointsToWin: record.PointsToWin,
		MinPlayers:  record.MinPlayers,
		Status:      game.SessionStatus(record.Status),
		CreatedAt:   record.CreatedAt,
		Version:     record.Version,
	}
	session.Rounds = make([]game.Round, record.RoundCount)
	for i := range session.Rounds {
		session.Rounds[i].Number = i + 1
	}
	for _, row := range drawings {
		if row.RoundNumber < 1 || row.RoundNumber > len(session.Rounds) {
			continue
		}
		drawing := &game.Drawing{
			ID:             row.ID,
			Author:         row.Author,
			ImageKey:       row.ImageKey,
			WinningCaption: row.WinningCaption,
			CreatedAt:      row.CreatedAt,
		}
		for _, captionRow := range row.Captions {
			drawing.Captions = append(drawing.Captions, game.Caption{
				ID:        captionRow.ID,
				Author:    captionRow.Author,
				Text:      captionRow.Text,
				Won:       captionRow.Won,
				CreatedAt: captionRow.CreatedAt,
			})
		}
		session.Rounds[row.RoundNumber-1].Drawing = drawing
	}
	return session, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
