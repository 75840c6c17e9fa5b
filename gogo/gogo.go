// Package gogo remembers the idle pose indices a Go Loco avatar was
// left in and negotiates locomotion on avatars that report full-body
// tracking.
package gogo

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/c360/facebridge/bundle"
	"github.com/c360/facebridge/errors"
)

const fileName = "extGogo.json"

// Go Loco parameter names.
const (
	standParam  = "Go/StandIdle"
	crouchParam = "Go/CrouchIdle"
	proneParam  = "Go/ProneIdle"
	locoParam   = "Go/Locomotion"

	trackingTypeParam = "TrackingType"
)

// fullBodyThreshold: TrackingType above this means enough tracked
// points that animated locomotion should be off.
const fullBodyThreshold = 5

// ParamSource reads the gateway's cache of inbound avatar parameters.
type ParamSource interface {
	IntParam(name string) (int32, bool)
	BoolParam(name string) (bool, bool)
}

// Gogo holds the persisted idle pose indices.
type Gogo struct {
	path   string
	logger *slog.Logger

	state gogoState
}

type gogoState struct {
	IdleStand  int32 `json:"idle_stand"`
	IdleCrouch int32 `json:"idle_crouch"`
	IdleProne  int32 `json:"idle_prone"`
}

// DefaultPath returns the state location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.WrapFatal(err, "gogo", "DefaultPath", "config dir lookup")
	}
	return filepath.Join(dir, "facebridge", fileName), nil
}

// New loads the state at path, starting zeroed when the file is
// missing or unreadable.
func New(path string, logger *slog.Logger) *Gogo {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gogo{path: path, logger: logger}

	raw, err := os.ReadFile(path)
	if err != nil {
		return g
	}
	if err := json.Unmarshal(raw, &g.state); err != nil {
		logger.Warn("discarding malformed gogo state", "path", path, "error", err)
		g.state = gogoState{}
	}

	return g
}

// Notify consumes one inbound avatar parameter, persisting idle pose
// changes as they happen.
func (g *Gogo) Notify(name string, value interface{}) {
	v, ok := value.(int32)
	if !ok {
		return
	}

	switch name {
	case standParam:
		if g.state.IdleStand != v {
			g.state.IdleStand = v
			g.save()
		}
	case crouchParam:
		if g.state.IdleCrouch != v {
			g.state.IdleCrouch = v
			g.save()
		}
	case proneParam:
		if g.state.IdleProne != v {
			g.state.IdleProne = v
			g.save()
		}
	}
}

// Avatar pushes the remembered idle poses to a freshly loaded avatar.
func (g *Gogo) Avatar(b *bundle.Bundle) {
	g.logger.Info("restoring idle poses",
		"stand", g.state.IdleStand,
		"crouch", g.state.IdleCrouch,
		"prone", g.state.IdleProne)

	b.SendParameter(standParam, g.state.IdleStand)
	b.SendParameter(crouchParam, g.state.IdleCrouch)
	b.SendParameter(proneParam, g.state.IdleProne)
}

// Step keeps the avatar's locomotion mode consistent with the tracking
// setup: animated locomotion on, unless enough tracked points are
// reported for real walking.
func (g *Gogo) Step(params ParamSource, b *bundle.Bundle) {
	tracking, ok := params.IntParam(trackingTypeParam)
	if !ok {
		return
	}

	want := tracking <= fullBodyThreshold
	current, ok := params.BoolParam(locoParam)
	if ok && current == want {
		return
	}

	g.logger.Info("setting locomotion", "enabled", want)
	b.SendParameter(locoParam, want)
}

func (g *Gogo) save() {
	raw, err := json.Marshal(&g.state)
	if err != nil {
		g.logger.Warn("gogo serialization failed", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil {
		g.logger.Warn("gogo dir create failed", "path", g.path, "error", err)
		return
	}
	if err := os.WriteFile(g.path, raw, 0o644); err != nil {
		g.logger.Warn("gogo write failed", "path", g.path, "error", err)
		return
	}
	g.logger.Info("saved gogo state", "path", g.path)
}
