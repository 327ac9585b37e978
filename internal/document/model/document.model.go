package model

// Document type tags as stored in documents.type.
const (
	ImageType       = "i"
	WaypointType    = "w"
	RouteType       = "r"
	OutingType      = "o"
	ArticleType     = "c"
	BookType        = "b"
	AreaType        = "a"
	XreportType     = "x"
	UserProfileType = "u"
)

// AssociationKinds maps the keys of an associations payload to the
// document type they reference.
var AssociationKinds = map[string]string{
	"images":    ImageType,
	"waypoints": WaypointType,
	"routes":    RouteType,
	"outings":   OutingType,
	"articles":  ArticleType,
	"books":     BookType,
	"areas":     AreaType,
	"xreports":  XreportType,
	"users":     UserProfileType,
}

type Locale struct {
	ID          int64   `json:"-"`
	Lang        string  `json:"lang"`
	Title       string  `json:"title"`
	Summary     *string `json:"summary,omitempty"`
	Description *string `json:"description,omitempty"`
	Version     int     `json:"version,omitempty"`
	TopicID     *int64  `json:"topic_id,omitempty"`
}

type Geometry struct {
	Geom       *string `json:"geom,omitempty"`
	GeomDetail *string `json:"geom_detail,omitempty"`
	Version    int     `json:"version,omitempty"`
}

type AssociationRef struct {
	DocumentID int64 `json:"document_id"`
}

// Associations lists linked documents by kind ("waypoints", "routes", ...).
type Associations map[string][]AssociationRef

type Document struct {
	DocumentID   int64        `json:"document_id"`
	Type         string       `json:"type,omitempty"`
	Version      int          `json:"version"`
	Locales      []Locale     `json:"locales"`
	Geometry     *Geometry    `json:"geometry,omitempty"`
	Associations Associations `json:"associations,omitempty"`
}

// Locale returns the locale in lang, or the first one when lang is not
// available or empty.
func (d *Document) Locale(lang string) *Locale {
	for i := range d.Locales {
		if d.Locales[i].Lang == lang {
			return &d.Locales[i]
		}
	}
	if len(d.Locales) > 0 {
		return &d.Locales[0]
	}
	return nil
}

type Creator struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

type InfoLocale struct {
	Lang  string `json:"lang"`
	Title string `json:"title"`
}

type Info struct {
	DocumentID int64        `json:"document_id"`
	Locales    []InfoLocale `json:"locales"`
}
