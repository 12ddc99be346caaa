package producer

// Set fans one controller's input out to several pads, typically the
// legacy and event streams of the same slot.
type Set struct {
	Pads []*Pad
}

func (s *Set) SendButton(num int, val float64) {
	for _, p := range s.Pads {
		p.SendButton(num, val)
	}
}

func (s *Set) SendAxis(num int, val float64) {
	for _, p := range s.Pads {
		p.SendAxis(num, val)
	}
}

func (s *Set) Start() error {
	for _, p := range s.Pads {
		if err := p.Start(); err != nil {
			s.Stop()
			return err
		}
	}
	return nil
}

func (s *Set) Stop() {
	for _, p := range s.Pads {
		p.Stop()
	}
}
