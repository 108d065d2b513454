package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// StringArray is a text[] column on Postgres. Other dialects store the same
// array literal in a text column.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(value); err != nil {
		return err
	}
	*a = StringArray(arr)
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	return pq.StringArray(a).Value()
}

// GormDBDataType picks the column type per dialect
func (StringArray) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// JSONMap is a free-form JSON object column (jsonb on Postgres, text elsewhere)
type JSONMap map[string]interface{}

// GormDataType is the schema-level type; the column type comes from GormDBDataType
func (JSONMap) GormDataType() string {
	return "json"
}

// GormDBDataType picks the column type per dialect
func (JSONMap) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

// Scan implements the sql.Scanner interface for reading from database
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for JSONMap")
	}
	if len(raw) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Value implements the driver.Valuer interface for writing to database
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// User is the local shadow of an auth-provider account. Identity lives with
// the provider; this row only stores the last known location.
type User struct {
	ID          string   `gorm:"primaryKey;type:uuid" json:"id"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	CountryCode string   `gorm:"size:2" json:"country_code,omitempty"`

	// Profile
	Gender        string  `gorm:"size:16" json:"gender,omitempty"`
	ExpoPushToken string  `json:"expo_push_token,omitempty"`
	BranchData    JSONMap `json:"branch_data,omitempty"`

	LastLocationUpdate *time.Time `json:"last_location_update,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Genders accepted on profile updates
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// UserLocation is one point of a user's location trail. A row is appended
// every time the user reports where they are.
type UserLocation struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;index:idx_user_locations_user_recorded,priority:1" json:"-"`
	Lat        float64   `gorm:"not null" json:"lat"`
	Lng        float64   `gorm:"not null" json:"lng"`
	RecordedAt time.Time `gorm:"not null;index:idx_user_locations_user_recorded,priority:2" json:"recorded_at"`
}

// HasLocation reports whether a stored location is available
func (u *User) HasLocation() bool {
	return u != nil && u.Lat != nil && u.Lng != nil
}

// Post is an anonymous confession pinned to a randomized coordinate.
// Lat/Lng are final at creation and never moved afterwards.
type Post struct {
	ID      string  `gorm:"primaryKey;type:uuid" json:"id"`
	Content string  `gorm:"type:text;not null" json:"content"`
	Lat     float64 `gorm:"not null;index:idx_posts_location,priority:1" json:"lat"`
	Lng     float64 `gorm:"not null;index:idx_posts_location,priority:2" json:"lng"`
	UserID  *string `gorm:"type:uuid;index" json:"-"`

	POIID         *string `gorm:"column:poi_id;type:uuid;index" json:"poi_id,omitempty"`
	PostedFromPOI bool    `gorm:"column:posted_from_poi;default:false" json:"posted_from_poi"`

	// CountryCode is the author's country when the post was made
	CountryCode string `gorm:"size:2;index" json:"country_code,omitempty"`

	Views int64 `gorm:"default:0" json:"views"`

	// Moderation
	Hidden          bool       `gorm:"default:false;index" json:"-"`
	HiddenReason    string     `gorm:"type:text" json:"-"`
	RequiresReview  bool       `gorm:"default:false" json:"-"`
	ModerationScore *float64   `json:"-"`
	ModeratedAt     *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Reply is a response to a post. ThreadID groups every reply from one
// author within one post without revealing who the author is.
type Reply struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	PostID   string  `gorm:"type:uuid;not null;index:idx_replies_post_created,priority:1" json:"post_id"`
	UserID   *string `gorm:"type:uuid;index" json:"-"`
	Content  string  `gorm:"type:text;not null" json:"content"`
	ThreadID int     `gorm:"not null" json:"thread_id"`
	IsAuthor bool    `gorm:"default:false" json:"is_author"`
	Upvotes  int     `gorm:"default:0" json:"upvotes"`

	CreatedAt time.Time `gorm:"index:idx_replies_post_created,priority:2" json:"created_at"`
}

// ThreadAssignment records which thread id a replier holds on a post. The
// unique indexes on (post_id, thread_id) and (post_id, user_id) are what make
// thread ids race-free; the allocator's retry loop only avoids most collisions.
type ThreadAssignment struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	PostID   string  `gorm:"type:uuid;not null;uniqueIndex:idx_thread_post_thread,priority:1;uniqueIndex:idx_thread_post_user,priority:1" json:"post_id"`
	ThreadID int     `gorm:"not null;uniqueIndex:idx_thread_post_thread,priority:2" json:"thread_id"`
	UserID   *string `gorm:"type:uuid;uniqueIndex:idx_thread_post_user,priority:2" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// POI is a cached point of interest from an external places provider
type POI struct {
	ID                     string         `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalPlaceID        *string        `gorm:"uniqueIndex" json:"external_place_id,omitempty"`
	Source                 string         `gorm:"size:32;not null" json:"source"`
	Name                   string         `gorm:"not null" json:"name"`
	Category               string         `gorm:"size:64;index;not null" json:"category"`
	Types                  StringArray    `json:"types"`
	PrimaryType            string         `json:"primary_type,omitempty"`
	PrimaryTypeDisplayName string         `json:"primary_type_display_name,omitempty"`
	Photos                 StringArray    `json:"photos,omitempty"`
	IconMaskBaseURI        string         `json:"icon_mask_base_uri,omitempty"`
	IconBackgroundColor    string         `json:"icon_background_color,omitempty"`
	Lat                    float64        `gorm:"not null;index:idx_pois_location,priority:1" json:"lat"`
	Lng                    float64        `gorm:"not null;index:idx_pois_location,priority:2" json:"lng"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// DistanceMeters is filled in by nearby queries
	DistanceMeters float64 `gorm:"-" json:"distance_meters,omitempty"`
}

// TableName for POIs
func (POI) TableName() string {
	return "pois"
}

// POIFetchHistory is an append-only log of external fetches per area. It is
// only ever inserted and read to decide whether an area is fresh.
type POIFetchHistory struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Lat       float64   `gorm:"not null;index:idx_poi_fetch_location,priority:1" json:"lat"`
	Lng       float64   `gorm:"not null;index:idx_poi_fetch_location,priority:2" json:"lng"`
	Radius    float64   `gorm:"not null" json:"radius"`
	Source    string    `gorm:"size:32;not null" json:"source"`
	FetchedAt time.Time `gorm:"not null;index" json:"fetched_at"`
}

// TableName for fetch history
func (POIFetchHistory) TableName() string {
	return "poi_fetch_history"
}

// Viewing circle types
const (
	CircleTypeDefault        = "default"
	CircleTypeFixed          = "fixed"
	CircleTypeFriendLocation = "friend_location"
)

// ViewingCircle is a saved vantage point a user can browse the feed from
type ViewingCircle struct {
	ID           string   `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string   `gorm:"type:uuid;not null;index" json:"user_id"`
	Type         string   `gorm:"size:32;not null" json:"type"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	FriendUserID *string  `gorm:"type:uuid" json:"-"`
	RadiusKm     float64  `gorm:"not null;default:5" json:"radius_km"`

	CreatedAt time.Time `json:"created_at"`
}

// Reward types and statuses
const (
	RewardTypeCircleUnlockInvite = "circle_unlock_invite"
	RewardTypeGiftCircle         = "gift_circle"

	RewardStatusPending   = "pending"
	RewardStatusCompleted = "completed"
	RewardStatusExpired   = "expired"
)

// UserReward is something a user earned, e.g. an extra viewing circle
type UserReward struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string     `gorm:"type:uuid;not null;index" json:"user_id"`
	RewardType   string     `gorm:"size:64;not null" json:"reward_type"`
	RewardStatus string     `gorm:"size:32;not null;default:pending" json:"reward_status"`
	RewardData   JSONMap    `json:"reward_data,omitempty"`
	Title        string     `json:"title"`
	Description  string     `gorm:"type:text" json:"description,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reaction types
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// Reaction is a like/dislike on exactly one of a post or a reply
type Reaction struct {
	ID           string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string  `gorm:"type:uuid;not null;index" json:"-"`
	PostID       *string `gorm:"type:uuid;index" json:"post_id,omitempty"`
	ReplyID      *string `gorm:"type:uuid;index" json:"reply_id,omitempty"`
	ReactionType string  `gorm:"size:16;not null" json:"reaction_type"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Report statuses
const (
	ReportStatusPending = "pending"
)

// Report flags a post or reply for moderation
type Report struct {
	ID         string  `gorm:"primaryKey;type:uuid" json:"id"`
	ReporterID string  `gorm:"type:uuid;not null;index" json:"-"`
	PostID     *string `gorm:"type:uuid;index" json:"post_id,omitempty"`
	ReplyID    *string `gorm:"type:uuid;index" json:"reply_id,omitempty"`
	Reason     string  `gorm:"not null" json:"reason"`
	Details    string  `gorm:"type:text" json:"details,omitempty"`
	Status     string  `gorm:"size:32;not null;default:pending" json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

// ReferralCode is an invite code minted by one user and redeemable once by another
type ReferralCode struct {
	ID        string     `gorm:"primaryKey;type:uuid" json:"id"`
	Code      string     `gorm:"size:16;not null;uniqueIndex" json:"code"`
	InviterID string     `gorm:"type:uuid;not null;index" json:"-"`
	InviteeID *string    `gorm:"type:uuid;index" json:"-"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
}

// ScreenshotAttempt records a screenshot a client reported
type ScreenshotAttempt struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index:idx_screenshots_user_created,priority:1" json:"-"`
	DeviceID  string    `json:"device_id,omitempty"`
	IPAddress string    `gorm:"size:64" json:"-"`
	UserAgent string    `json:"-"`
	CreatedAt time.Time `gorm:"index:idx_screenshots_user_created,priority:2" json:"created_at"`
}

// TableName for screenshot attempts
func (ScreenshotAttempt) TableName() string {
	return "screenshots_taken"
}

// ScreenshotLockout blocks a user that took too many screenshots until LockedUntil
type ScreenshotLockout struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string    `gorm:"type:uuid;not null;index" json:"-"`
	LockedUntil     time.Time `gorm:"not null;index" json:"locked_until"`
	Reason          string    `json:"reason,omitempty"`
	ScreenshotCount int64     `gorm:"not null" json:"screenshot_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// All lists every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Post{},
		&Reply{},
		&ThreadAssignment{},
		&POI{},
		&POIFetchHistory{},
		&ViewingCircle{},
		&UserReward{},
		&Reaction{},
		&Report{},
		&UserLocation{},
		&ReferralCode{},
		&ScreenshotAttempt{},
		&ScreenshotLockout{},
	}
}

func generateUUID() string {
	return uuid.New().String()
}

// BeforeCreate hooks for GORM
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (a *ThreadAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = generateUUID()
	}
	return nil
}

func (p *POI) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (h *POIFetchHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = generateUUID()
	}
	return nil
}

func (c *ViewingCircle) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (r *UserReward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (l *UserLocation) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (c *ReferralCode) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (a *ScreenshotAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = generateUUID()
	}
	return nil
}

func (l *ScreenshotLockout) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}
