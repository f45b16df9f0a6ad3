package geometry

// Segment is the oriented segment from Src to Dst.
type Segment struct {
	Src Point `json:"src"`
	Dst Point `json:"dst"`
}

func (s Segment) Length() float64    { return s.Src.Distance(s.Dst) }
func (s Segment) Direction() float64 { return s.Dst.Sub(s.Src).Direction() }

// PointAtRate returns the point at rate r∈[0,1] along the segment.
func (s Segment) PointAtRate(r float64) Point {
	return s.Src.Add(s.Dst.Sub(s.Src).Scale(r))
}

// Distance returns the distance between p and the closest point of the segment.
func (s Segment) Distance(p Point) float64 {
	return p.Distance(s.ClosestPoint(p))
}

func (s Segment) ClosestPoint(p Point) Point {
	d := s.Dst.Sub(s.Src)
	l2 := d.Dot(d)
	if l2 == 0 {
		return s.Src
	}
	r := p.Sub(s.Src).Dot(d) / l2
	switch {
	case r < 0:
		r = 0
	case r > 1:
		r = 1
	}
	return s.PointAtRate(r)
}
