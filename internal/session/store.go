// Package session keeps per-user context between requests: search
// preferences, conversation history and viewed listings. Entries live in
// memory and expire after a period of inactivity.
package session

import (
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/property-advisor/internal/model"
)

// ErrInvalid reports a rejected argument.
var ErrInvalid = eris.New("session: invalid argument")

// Viewing actions.
const (
	ActionViewed    = "viewed"
	ActionFavorited = "favorited"
	ActionContacted = "contacted"
)

const (
	maxHistoryLimit = 1000
	maxStoredTurns  = 1000
	maxStoredViews  = 500
)

// Preferences is a saved criteria snapshot.
type Preferences struct {
	Criteria  model.SearchCriteria `json:"criteria" yaml:"criteria"`
	MustHaves []string             `json:"must_haves" yaml:"must_haves"`
	UpdatedAt time.Time            `json:"updated_at" yaml:"updated_at"`
}

// ViewedListing records one interaction with a listing.
type ViewedListing struct {
	ListingID string    `json:"listing_id" yaml:"listing_id"`
	Action    string    `json:"action" yaml:"action"`
	At        time.Time `json:"at" yaml:"at"`
}

type profile struct {
	prefs   *Preferences
	history []model.Turn
	viewed  []ViewedListing
}

// Store holds user context in memory. Safe for concurrent use.
type Store struct {
	c   *gocache.Cache
	ttl time.Duration
	now func() time.Time

	mu sync.Mutex
}

// NewStore creates a Store whose entries expire after ttl without access.
// A non-positive ttl keeps entries until the process exits.
func NewStore(ttl, cleanup time.Duration) *Store {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c := gocache.New(ttl, cleanup)
	c.OnEvicted(func(userID string, _ any) {
		zap.L().Debug("session: user context expired", zap.String("user_id", userID))
	})
	return &Store{c: c, ttl: ttl, now: time.Now}
}

// load returns the profile for userID and refreshes its expiry. The caller
// must hold s.mu.
func (s *Store) load(userID string, create bool) *profile {
	if v, ok := s.c.Get(userID); ok {
		p := v.(*profile)
		s.c.Set(userID, p, s.ttl)
		return p
	}
	if !create {
		return nil
	}
	p := &profile{}
	s.c.Set(userID, p, s.ttl)
	return p
}

func validUser(userID string) (string, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return "", eris.Wrap(ErrInvalid, "user id is required")
	}
	return id, nil
}

// SetPreferences replaces the saved preferences for a user.
func (s *Store) SetPreferences(userID string, criteria model.SearchCriteria, mustHaves []string) error {
	id, err := validUser(userID)
	if err != nil {
		return err
	}
	if mustHaves == nil {
		mustHaves = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(id, true).prefs = &Preferences{
		Criteria:  criteria,
		MustHaves: append([]string(nil), mustHaves...),
		UpdatedAt: s.now().UTC(),
	}
	return nil
}

// Preferences returns the saved preferences for a user, if any.
func (s *Store) Preferences(userID string) (Preferences, bool, error) {
	id, err := validUser(userID)
	if err != nil {
		return Preferences{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.load(id, false)
	if p == nil || p.prefs == nil {
		return Preferences{}, false, nil
	}
	return *p.prefs, true, nil
}

// AddTurn appends a message to the user's conversation.
func (s *Store) AddTurn(userID, role, content string) error {
	id, err := validUser(userID)
	if err != nil {
		return err
	}
	if role != "user" && role != "assistant" {
		return eris.Wrapf(ErrInvalid, "role must be user or assistant, got %q", role)
	}
	if strings.TrimSpace(content) == "" {
		return eris.Wrap(ErrInvalid, "content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.load(id, true)
	p.history = append(p.history, model.Turn{Role: role, Content: content, At: s.now().UTC()})
	if len(p.history) > maxStoredTurns {
		p.history = append([]model.Turn(nil), p.history[len(p.history)-maxStoredTurns:]...)
	}
	return nil
}

// History returns the user's conversation in order. A positive limit keeps
// only the most recent limit turns; zero returns everything.
func (s *Store) History(userID string, limit int) ([]model.Turn, error) {
	id, err := validUser(userID)
	if err != nil {
		return nil, err
	}
	if limit < 0 || limit > maxHistoryLimit {
		return nil, eris.Wrapf(ErrInvalid, "limit must be between 1 and %d", maxHistoryLimit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.load(id, false)
	if p == nil {
		return []model.Turn{}, nil
	}
	h := p.history
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	return append([]model.Turn{}, h...), nil
}

// TrackViewed records an interaction with a listing. The action is one of
// ActionViewed, ActionFavorited or ActionContacted; empty means viewed.
func (s *Store) TrackViewed(userID, listingID, action string) error {
	id, err := validUser(userID)
	if err != nil {
		return err
	}
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return eris.Wrap(ErrInvalid, "listing id is required")
	}
	action = strings.ToLower(strings.TrimSpace(action))
	switch action {
	case "":
		action = ActionViewed
	case ActionViewed, ActionFavorited, ActionContacted:
	default:
		return eris.Wrapf(ErrInvalid, "action must be viewed, favorited or contacted, got %q", action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.load(id, true)
	p.viewed = append(p.viewed, ViewedListing{ListingID: listingID, Action: action, At: s.now().UTC()})
	if len(p.viewed) > maxStoredViews {
		p.viewed = append([]ViewedListing(nil), p.viewed[len(p.viewed)-maxStoredViews:]...)
	}
	return nil
}

// Viewed returns the user's listing interactions, newest first.
func (s *Store) Viewed(userID string) ([]ViewedListing, error) {
	id, err := validUser(userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.load(id, false)
	if p == nil {
		return []ViewedListing{}, nil
	}
	out := make([]ViewedListing, len(p.viewed))
	for i, v := range p.viewed {
		out[len(p.viewed)-1-i] = v
	}
	return out, nil
}

// Forget drops everything stored for a user.
func (s *Store) Forget(userID string) {
	s.c.Delete(strings.TrimSpace(userID))
}

// Users returns the number of users with live context.
func (s *Store) Users() int {
	return s.c.ItemCount()
}
