package domain

// Region groups tickets by area. Names are globally unique.
type Region struct {
	ID      int64
	Name    string
	Manager string
}
