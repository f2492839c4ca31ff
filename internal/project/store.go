package project

// Collection names one of the two record lists.
type Collection string

const (
	Projects Collection = "projects"
	Archives Collection = "archives"
)

// Collections lists every collection in lookup order.
func Collections() []Collection {
	return []Collection{Projects, Archives}
}

// Store persists records by collection. Get and Set are each atomic: a
// failed Set leaves the previous contents intact.
type Store interface {
	Get(c Collection) ([]Record, error)
	Set(c Collection, records []Record) error
}

// Transferer is implemented by stores that can move a record between
// collections in one write. rec replaces the record named name.
type Transferer interface {
	Transfer(name string, from, to Collection, rec Record) error
}
