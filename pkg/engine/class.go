package engine

// Class identifies one of the four benchmark operation classes. Each
// worker is assigned exactly one class at start and keeps it for the
// whole run; throughput is reported per class.
type Class int

const (
	LinRd Class = iota // linear read
	RndRd              // random read
	LinWr              // linear write
	RndWr              // random write

	NumClasses = 4
)

var classNames = [NumClasses]string{"LinRd", "RndRd", "LinWr", "RndWr"}

func (c Class) String() string {
	if c < 0 || c >= NumClasses {
		return "unknown"
	}
	return classNames[c]
}

// IsWrite reports whether workers of this class issue writes.
func (c Class) IsWrite() bool { return c == LinWr || c == RndWr }

// IsRandom reports whether workers of this class pick block positions
// at random rather than walking the range in order.
func (c Class) IsRandom() bool { return c == RndRd || c == RndWr }
