package unit

// FakeBackend is a scripted backend for tests. Each primitive returns the
// configured error (nil meaning "async in progress") and records the call.
type FakeBackend struct {
	State ActiveState
	Sub   string

	StartErr  error
	StopErr   error
	ReloadErr error

	Calls []string
}

// NewFake builds a unit with a fake backend in the given state
func NewFake(name string, state ActiveState) (*Unit, *FakeBackend) {
	b := &FakeBackend{State: state, Sub: "dead"}
	u := &Unit{Name: name, Backend: b}
	return u, b
}

func (f *FakeBackend) Start() error {
	f.Calls = append(f.Calls, "start")
	return f.StartErr
}

func (f *FakeBackend) Stop() error {
	f.Calls = append(f.Calls, "stop")
	return f.StopErr
}

func (f *FakeBackend) Reload() error {
	f.Calls = append(f.Calls, "reload")
	return f.ReloadErr
}

func (f *FakeBackend) ActiveState() ActiveState { return f.State }

func (f *FakeBackend) SubState() string { return f.Sub }
