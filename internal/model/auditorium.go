package model

import "time"

// ProjectionType and SoundSystemType describe screen equipment.
type ProjectionType string

const (
	ProjectionStandard ProjectionType = "STANDARD"
	ProjectionDolby    ProjectionType = "DOLBY_CINEMA"
	ProjectionIMAX     ProjectionType = "IMAX"
	Projection4DX      ProjectionType = "FOUR_DX"
)

type SoundSystemType string

const (
	SoundMono   SoundSystemType = "MONO"
	SoundStereo SoundSystemType = "STEREO"
	SoundDolby  SoundSystemType = "DOLBY_ATMOS"
	SoundDTS    SoundSystemType = "DTS_X"
)

// ValidProjection reports whether p is a known projection type.
func ValidProjection(p ProjectionType) bool {
	switch p {
	case ProjectionStandard, ProjectionDolby, ProjectionIMAX, Projection4DX:
		return true
	}
	return false
}

// ValidSoundSystem reports whether s is a known sound system.
func ValidSoundSystem(s SoundSystemType) bool {
	switch s {
	case SoundMono, SoundStereo, SoundDolby, SoundDTS:
		return true
	}
	return false
}

// Auditorium is a venue holding one or more screens.
type Auditorium struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	Address   *Address  `db:"-" json:"address,omitempty"`
	Screens   []Screen  `db:"-" json:"screens,omitempty"`
}

// Address locates an auditorium.
type Address struct {
	AuditoriumID int64   `db:"auditorium_id" json:"-"`
	Lat          float64 `db:"lat" json:"lat"`
	Lng          float64 `db:"lng" json:"lng"`
	Address      string  `db:"address" json:"address"`
}

// Bounds is a lat/lng bounding box (north-east and south-west corners).
type Bounds struct {
	NELat, NELng float64
	SWLat, SWLng float64
}

// Screen is a seating area with a fixed Rows x Columns grid.
type Screen struct {
	ID              int64           `db:"id" json:"id"`
	AuditoriumID    int64           `db:"auditorium_id" json:"auditoriumId"`
	Number          int             `db:"number" json:"number"`
	Rows            int             `db:"rows_count" json:"rows"`
	Columns         int             `db:"cols_count" json:"columns"`
	Price           int             `db:"price" json:"price"`
	ProjectionType  ProjectionType  `db:"projection_type" json:"projectionType"`
	SoundSystemType SoundSystemType `db:"sound_system_type" json:"soundSystemType"`
}

// Contains reports whether p lies inside the screen grid.
func (s Screen) Contains(p SeatPosition) bool {
	return p.Row >= 1 && p.Row <= s.Rows && p.Column >= 1 && p.Column <= s.Columns
}
