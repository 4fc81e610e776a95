package inspect

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rigscope/internal/config"
	"github.com/Faultbox/rigscope/internal/constraint"
	"github.com/Faultbox/rigscope/internal/ik"
	"github.com/Faultbox/rigscope/internal/rig"
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/internal/store"
	"github.com/Faultbox/rigscope/pkg/math"
)

func bone(name string, pos math.Vec3) *skeleton.Node {
	b := skeleton.NewNode(name)
	b.IsBone = true
	b.Position = pos
	return b
}

// running assembles an arm rig, ticks it in the background and returns a
// server for it.
func running(t *testing.T, presets *store.Store) (*Server, *rig.Rig) {
	t.Helper()
	armature := skeleton.NewNode("Armature")
	upper := bone("upper", math.Vec3{X: 3, Y: -2})
	lower := bone("lower", math.Vec3{X: -1.5, Y: 1.5})
	hand := bone("hand", math.Vec3{X: -1.5, Y: 0.5})
	armature.Add(upper)
	upper.Add(lower)
	lower.Add(hand)

	opts := rig.DefaultOptions()
	opts.Model = "arm"
	opts.Constraints.InferFromRest = false
	r, err := rig.Assemble(armature, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
		r.Close()
	})

	return New(r, presets, config.Default().Inspect), r
}

func call(t *testing.T, s *Server, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHealth(t *testing.T) {
	s, _ := running(t, nil)
	status, body := call(t, s, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"alive"}`, string(body))
}

func TestGetRigAndBones(t *testing.T) {
	s, r := running(t, nil)

	status, body := call(t, s, http.MethodGet, "/api/v1/rig", "")
	require.Equal(t, http.StatusOK, status)
	var snap rig.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, r.ID.String(), snap.ID)
	assert.Equal(t, 3, snap.Bones)
	assert.Equal(t, "hand", snap.HandleBone)

	status, body = call(t, s, http.MethodGet, "/api/v1/bones", "")
	require.Equal(t, http.StatusOK, status)
	var bones []rig.BoneInfo
	require.NoError(t, json.Unmarshal(body, &bones))
	require.Len(t, bones, 3)
	assert.Equal(t, "upper", bones[0].Name)

	status, body = call(t, s, http.MethodGet, "/api/v1/joints", "")
	require.Equal(t, http.StatusOK, status)
	var joints []rig.JointInfo
	require.NoError(t, json.Unmarshal(body, &joints))
	assert.Len(t, joints, 3)

	status, body = call(t, s, http.MethodGet, "/api/v1/constraints", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestPutConstraint(t *testing.T) {
	s, _ := running(t, nil)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"hinge", "/api/v1/bones/lower/constraint", `{"type":"hinge","axis":"z","min":-1,"max":1}`, http.StatusOK},
		{"preserve fixed", "/api/v1/bones/upper/constraint?preserve=true", `{"type":"fixed"}`, http.StatusOK},
		{"unknown bone", "/api/v1/bones/tail/constraint", `{"type":"fixed"}`, http.StatusNotFound},
		{"invalid spec", "/api/v1/bones/lower/constraint", `{"type":"hinge"}`, http.StatusBadRequest},
		{"unknown type", "/api/v1/bones/lower/constraint", `{"type":"wobble"}`, http.StatusBadRequest},
		{"bad json", "/api/v1/bones/lower/constraint", `{`, http.StatusBadRequest},
		{"bad preserve", "/api/v1/bones/lower/constraint?preserve=maybe", `{"type":"fixed"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, s, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, status, string(body))
		})
	}

	status, body := call(t, s, http.MethodGet, "/api/v1/constraints", "")
	require.Equal(t, http.StatusOK, status)
	var got []rig.ConstraintInfo
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "upper", got[0].Bone)
	assert.Equal(t, constraint.KindFixed, got[0].Spec.Type)
	assert.Equal(t, "lower", got[1].Bone)
	assert.Equal(t, "z", got[1].Spec.Axis)

	status, _ = call(t, s, http.MethodPut, "/api/v1/bones/lower/constraint", `{"type":"none"}`)
	assert.Equal(t, http.StatusOK, status)
	_, body = call(t, s, http.MethodGet, "/api/v1/constraints", "")
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Len(t, got, 1)
}

func TestLockAndSettings(t *testing.T) {
	s, _ := running(t, nil)

	status, _ := call(t, s, http.MethodPost, "/api/v1/bones/upper/lock", `{"locked":true}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, s, http.MethodPost, "/api/v1/bones/nope/lock", `{"locked":true}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, s, http.MethodPost, "/api/v1/bones/upper/lock", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := call(t, s, http.MethodPatch, "/api/v1/rig", `{"restoreLocked":false,"display":false}`)
	require.Equal(t, http.StatusOK, status)
	var snap rig.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, []string{"upper"}, snap.Locked)
	assert.False(t, snap.RestoreLocked)
	assert.False(t, snap.Display)
}

func TestSolve(t *testing.T) {
	s, _ := running(t, nil)

	status, body := call(t, s, http.MethodPost, "/api/v1/solve", `{"bone":"hand","target":[1,1,0]}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var res ik.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Converged)
	assert.Equal(t, ik.DefaultIterations, res.Passes)

	status, _ = call(t, s, http.MethodPost, "/api/v1/solve", `{"target":[1,1,0]}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, s, http.MethodPost, "/api/v1/solve", `{"bone":"tail","target":[1,1,0]}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReset(t *testing.T) {
	s, _ := running(t, nil)

	status, _ := call(t, s, http.MethodPost, "/api/v1/solve", `{"bone":"hand","target":[1,1,0]}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, s, http.MethodPost, "/api/v1/reset", "")
	require.Equal(t, http.StatusNoContent, status)

	status, body := call(t, s, http.MethodGet, "/api/v1/rig", "")
	require.Equal(t, http.StatusOK, status)
	var snap rig.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.InDelta(t, 0, snap.HandlePosition[0], 1e-5)
	assert.InDelta(t, 0, snap.HandlePosition[1], 1e-5)
}

func TestPresetsPersisted(t *testing.T) {
	presets, err := store.Open(filepath.Join(t.TempDir(), "presets.db"))
	require.NoError(t, err)
	defer presets.Close()

	s, _ := running(t, presets)

	status, body := call(t, s, http.MethodPut, "/api/v1/bones/lower/constraint", `{"type":"hinge","axis":"x"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"persisted":true`)

	status, body = call(t, s, http.MethodGet, "/api/v1/presets", "")
	require.Equal(t, http.StatusOK, status)
	var overrides []store.Override
	require.NoError(t, json.Unmarshal(body, &overrides))
	require.Len(t, overrides, 1)
	assert.Equal(t, "lower", overrides[0].Bone)
	assert.Equal(t, "x", overrides[0].Spec.Axis)
}

func TestPresetsKeepPreservedPose(t *testing.T) {
	presets, err := store.Open(filepath.Join(t.TempDir(), "presets.db"))
	require.NoError(t, err)
	defer presets.Close()

	s, _ := running(t, presets)

	status, body := call(t, s, http.MethodPut, "/api/v1/bones/lower/constraint?preserve=true", `{"type":"fixed"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"persisted":true`)

	overrides, err := presets.List(context.Background(), "arm")
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Len(t, overrides[0].Spec.Pose, 16)

	// A fresh rig of the same model holds the captured pose.
	armature := skeleton.NewNode("Armature")
	upper := bone("upper", math.Vec3{X: 3, Y: -2})
	lower := bone("lower", math.Vec3{X: -1.5, Y: 1.5})
	armature.Add(upper)
	upper.Add(lower)
	opts := rig.DefaultOptions()
	opts.Model = "arm"
	opts.Constraints.InferFromRest = false
	fresh, err := rig.Assemble(armature, opts)
	require.NoError(t, err)
	defer fresh.Close()

	n, err := presets.ApplyTo(context.Background(), fresh)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	upper.SetRotation(math.Euler{Z: 0.7})
	fresh.Tick(time.Now())
	assert.InDelta(t, 0, lower.WorldPosition().Distance(math.Vec3{X: 1.5, Y: -0.5}), 1e-4)
}

func TestPresetsDisabled(t *testing.T) {
	s, _ := running(t, nil)
	status, _ := call(t, s, http.MethodGet, "/api/v1/presets", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestClosedRig(t *testing.T) {
	s, r := running(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = r.Do(ctx, func(r *rig.Rig) error {
		r.Close()
		return nil
	})
	require.True(t, r.Closed())

	status, _ := call(t, s, http.MethodGet, "/api/v1/rig", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
