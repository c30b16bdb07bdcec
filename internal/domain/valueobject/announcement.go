package valueobject

// AnnouncementKind различает источник объявления
type AnnouncementKind string

const (
	AnnouncementForced   AnnouncementKind = "forced"
	AnnouncementDown     AnnouncementKind = "system-down"
	AnnouncementFailover AnnouncementKind = "failover"
)

// Announcement представляет критическое объявление для баннера
type Announcement struct {
	Kind  AnnouncementKind `json:"kind"`
	Title string           `json:"title"`
}
