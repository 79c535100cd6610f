package notification

// Type identifies the kind of notification.
type Type string

const (
	TypeInitialState    Type = "initial_state"
	TypeStateChange     Type = "state_change"
	TypeToast           Type = "toast"
	TypeFavoriteChanged Type = "favorite_changed"
	TypeQueueChanged    Type = "queue_changed"
)

// ToastType is the severity of a toast message.
type ToastType string

const (
	ToastInfo    ToastType = "info"
	ToastSuccess ToastType = "success"
	ToastWarning ToastType = "warning"
	ToastError   ToastType = "error"
)

// Toaster shows user-visible messages.
type Toaster interface {
	Toast(kind ToastType, message string)
}

// Notification is a single event delivered to subscribers.
type Notification struct {
	SequenceNo uint64          `json:"sequence_no"`
	Type       Type            `json:"type"`
	State      *PlayerState    `json:"state,omitempty"`
	Toast      *Toast          `json:"toast,omitempty"`
	Favorite   *FavoriteChange `json:"favorite,omitempty"`
	QueueSize  int             `json:"queue_size,omitempty"`
}

// PlayerState is the state-change payload.
type PlayerState struct {
	Song        string  `json:"song"`
	SongID      string  `json:"song_id"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	Cover       string  `json:"cover"`
	IsPlaying   bool    `json:"is_playing"`
	Duration    float64 `json:"duration"`
	CurrentTime float64 `json:"current_time"`
	TotalTime   float64 `json:"total_time"`
	Shuffle     bool    `json:"shuffle"`
	Repeat      string  `json:"repeat"`
}

// Toast is a user-visible message.
type Toast struct {
	Kind    ToastType `json:"kind"`
	Message string    `json:"message"`
}

// FavoriteChange reports the new membership of one favorite.
type FavoriteChange struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Favorite bool   `json:"favorite"`
}
