package loader

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

type fakeFeature struct {
	name    string
	enabled bool
	err     error
	loaded  bool
}

func (f *fakeFeature) Name() string { return f.name }
func (f *fakeFeature) IsEnabled() bool { return f.enabled }
func (f *fakeFeature) Load(app fiber.Router) error {
	f.loaded = true
	return f.err
}

func TestManager_LoadAll(t *testing.T) {
	mgr := NewManager()
	on := &fakeFeature{name: "ledger", enabled: true}
	off := &fakeFeature{name: "snapshot", enabled: false}
	mgr.Register(on)
	mgr.Register(off)
	mgr.Register(nil)

	assert.Len(t, mgr.Features(), 2)
	assert.NoError(t, mgr.LoadAll(fiber.New()))
	assert.True(t, on.loaded)
	assert.False(t, off.loaded)
}

func TestManager_LoadAllError(t *testing.T) {
	mgr := NewManager()
	mgr.Register(&fakeFeature{name: "events", enabled: true, err: errors.New("boom")})

	err := mgr.LoadAll(fiber.New())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "events")
}
