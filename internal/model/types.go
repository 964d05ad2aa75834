package model

import "time"

// Core domain types shared by the tracker, the API and the stores.

// Destination is one catalog entry Santa can fly to. Loaded once, never mutated.
type Destination struct {
	Name     string  `json:"name" yaml:"name"`
	Country  string  `json:"country" yaml:"country"`
	Region   string  `json:"region" yaml:"region"` // continent
	Lat      float64 `json:"lat" yaml:"lat"`
	Lng      float64 `json:"lng" yaml:"lng"`
	Timezone string  `json:"timezone" yaml:"timezone"`
	FunFact  string  `json:"funFact,omitempty" yaml:"funFact,omitempty"`
	Special  bool    `json:"special,omitempty" yaml:"special,omitempty"`
}

// Point returns the destination's coordinates.
func (d Destination) Point() PathPoint { return PathPoint{Lat: d.Lat, Lng: d.Lng} }

// PathPoint is a latitude/longitude pair in degrees.
type PathPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event types published to rendering clients.
const (
	EventArrived             = "santa.arrived"
	EventPath                = "santa.path"
	EventMilestone           = "milestone.reached"
	EventAchievementUnlocked = "achievement.unlocked"
	EventWorkshopActivity    = "workshop.activity"
	EventModeChanged         = "tracker.mode"
	EventStopped             = "tracker.stopped"
	EventHeartbeat           = "heartbeat"
)

// Event is the envelope pushed through the broker, SSE, WebSocket and webhooks.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	TS   string `json:"ts"`
	Data any    `json:"data,omitempty"`
}

type Gift struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

type Reindeer struct {
	Name    string `json:"name"`
	Trait   string `json:"trait"`
	Special bool   `json:"special,omitempty"`
}

// Arrival describes one completed hop.
type Arrival struct {
	From              *Destination `json:"from,omitempty"`
	To                Destination  `json:"to"`
	PresentsThisStop  int          `json:"presentsThisStop"`
	PresentsDelivered int64        `json:"presentsDelivered"`
	CitiesVisited     int          `json:"citiesVisited"`
	RegionsVisited    []string     `json:"regionsVisited"`
	LocalTime         string       `json:"localTime"`
	DistanceKm        float64      `json:"distanceKm,omitempty"`
	SpeedMach         int          `json:"speedMach"`
	CookiesThisStop   int          `json:"cookiesThisStop"`
	MilkThisStop      int          `json:"milkThisStop"`
	LeadReindeer      string       `json:"leadReindeer,omitempty"`
	Gift              Gift         `json:"gift"`
	FunFact           string       `json:"funFact,omitempty"`
	Message           string       `json:"message,omitempty"`
	Aurora            bool         `json:"aurora,omitempty"` // above 60° north or south
}

// FlightPath is the curved line drawn between two stops, with decoration markers.
type FlightPath struct {
	From       string      `json:"from"`
	To         string      `json:"to"`
	Points     []PathPoint `json:"points"`
	Reindeer   []PathPoint `json:"reindeer"`
	DistanceKm float64     `json:"distanceKm"`
}

type Milestone struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Achievement is a definition joined with its unlock state.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
	UnlockedAt  string `json:"unlockedAt,omitempty"`
}

// UnlockedAchievement is the persisted form of an unlocked achievement.
type UnlockedAchievement struct {
	ID         string
	UnlockedAt time.Time
}

type WorkshopActivity struct {
	Activity     string `json:"activity"`
	PresentsMade int64  `json:"presentsMade"`
	ElvesWorking int    `json:"elvesWorking"`
}

type ModeChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TrackerStatus is the read model served to clients.
type TrackerStatus struct {
	TrackerID         string       `json:"trackerId"`
	Mode              string       `json:"mode"`
	State             string       `json:"state"`
	Current           *Destination `json:"current,omitempty"`
	LocalTime         string       `json:"localTime,omitempty"`
	PresentsDelivered int64        `json:"presentsDelivered"`
	PresentsMade      int64        `json:"presentsMade,omitempty"`
	CitiesVisited     int          `json:"citiesVisited"`
	Regions           []string     `json:"regions"`
	NextHopMs         int64        `json:"nextHopMs"`
	CookiesEaten      int          `json:"cookiesEaten"`
	MilkDrunk         int          `json:"milkDrunk"`
	SpeedMach         int          `json:"speedMach"`
	TopSpeedMach      int          `json:"topSpeedMach"`
	LeadReindeer      string       `json:"leadReindeer,omitempty"`
	LastGift          string       `json:"lastGift,omitempty"`
	ElvesWorking      int          `json:"elvesWorking,omitempty"`
	StartedAt         string       `json:"startedAt,omitempty"`
	LastError         string       `json:"lastError,omitempty"`
}

type ChristmasCountdown struct {
	Days        int    `json:"days"`
	Hours       int    `json:"hours"`
	Minutes     int    `json:"minutes"`
	Seconds     int    `json:"seconds"`
	IsChristmas bool   `json:"isChristmas"`
	Text        string `json:"text"`
}

type Countdown struct {
	NextHopMs   int64              `json:"nextHopMs"`
	NextHopText string             `json:"nextHopText"`
	Christmas   ChristmasCountdown `json:"christmas"`
}
