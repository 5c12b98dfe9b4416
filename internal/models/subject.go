package models

// SubjectKind tags which entity a favorite or review points at. The pair
// (kind, id) is resolved through an explicit lookup table in the service
// layer; there is no reflection or dynamic type resolution.
type SubjectKind string

const (
	SubjectProduct  SubjectKind = "product"
	SubjectPharmacy SubjectKind = "pharmacy"
	SubjectOrder    SubjectKind = "order"
)

// SubjectRef is a tagged reference to a product, pharmacy, or order
type SubjectRef struct {
	Kind SubjectKind `db:"subject_kind" json:"subject_kind"`
	ID   string      `db:"subject_id" json:"subject_id"`
}
