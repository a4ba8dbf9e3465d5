package media

import "time"

// Rect is a face bounding box in pixel coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the box area; degenerate boxes report zero.
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Face is one detected face within one file version. Created by detection,
// mutated only by assignment/ignore operations; re-detection replaces the
// whole set for a version rather than editing faces in place.
type Face struct {
	ID         string
	VersionID  string
	Box        Rect
	Confidence float64
	Embedding  []float32
	PersonID   *string
	Ignored    bool
	CreatedAt  time.Time
}

// Assigned reports whether the face carries a person assignment.
func (f *Face) Assigned() bool {
	return f.PersonID != nil && *f.PersonID != ""
}

// Person is an identity a user curates. Faces reference a person by id only;
// deleting a person nulls out referencing faces.
type Person struct {
	ID                   string
	Name                 string
	Birthdate            *time.Time
	RepresentativeFaceID *string
	CreatedAt            time.Time
}

// AgeAt returns the person's age in whole years at the given time, or -1
// when no birthdate is recorded.
func (p *Person) AgeAt(at time.Time) int {
	if p.Birthdate == nil || at.Before(*p.Birthdate) {
		return -1
	}
	years := at.Year() - p.Birthdate.Year()
	anniversary := p.Birthdate.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}
