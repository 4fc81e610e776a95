package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/rigscope/internal/constraint"
	"github.com/Faultbox/rigscope/internal/ik"
	"github.com/Faultbox/rigscope/internal/rig"
	"github.com/Faultbox/rigscope/internal/store"
	"github.com/Faultbox/rigscope/pkg/math"
)

type lockRequest struct {
	Locked bool `json:"locked"`
}

type solveRequest struct {
	Bone   string     `json:"bone"`
	Target [3]float32 `json:"target"`
}

type settingsRequest struct {
	RestoreLocked *bool `json:"restoreLocked"`
	Display       *bool `json:"display"`
}

type constraintResponse struct {
	Bone      string          `json:"bone"`
	Spec      constraint.Spec `json:"spec"`
	Persisted bool            `json:"persisted"`
}

// do runs fn on the rig's owner with the request timeout.
func (s *Server) do(fn func(*rig.Rig) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.rig.Do(ctx, fn)
}

func (s *Server) getRig(c fiber.Ctx) error {
	var snap rig.Snapshot
	if err := s.do(func(r *rig.Rig) error {
		snap = r.Snapshot()
		return nil
	}); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(snap)
}

func (s *Server) patchRig(c fiber.Ctx) error {
	var req settingsRequest
	if err := decode(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var snap rig.Snapshot
	if err := s.do(func(r *rig.Rig) error {
		if req.RestoreLocked != nil {
			r.SetRestoreLocked(*req.RestoreLocked)
		}
		if req.Display != nil {
			r.SetDisplay(*req.Display)
		}
		snap = r.Snapshot()
		return nil
	}); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(snap)
}

func (s *Server) getBones(c fiber.Ctx) error {
	var bones []rig.BoneInfo
	if err := s.do(func(r *rig.Rig) error {
		bones = r.BoneInfos()
		return nil
	}); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(bones)
}

func (s *Server) getJoints(c fiber.Ctx) error {
	var joints []rig.JointInfo
	if err := s.do(func(r *rig.Rig) error {
		joints = r.JointInfos()
		return nil
	}); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(joints)
}

func (s *Server) getConstraints(c fiber.Ctx) error {
	constraints := []rig.ConstraintInfo{}
	if err := s.do(func(r *rig.Rig) error {
		constraints = append(constraints, r.Constraints()...)
		return nil
	}); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(constraints)
}

func (s *Server) putConstraint(c fiber.Ctx) error {
	name := c.Params("name")

	preserve := false
	if q := c.Query("preserve"); q != "" {
		v, err := strconv.ParseBool(q)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid preserve flag"})
		}
		preserve = v
	}

	var spec constraint.Spec
	if err := decode(c, &spec); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	resp := constraintResponse{Bone: name}
	if err := s.do(func(r *rig.Rig) error {
		if err := r.SetConstraint(name, spec, preserve); err != nil {
			return err
		}
		resp.Spec = constraint.Describe(r.Store().Find(name).UserData.Constraint)
		return nil
	}); err != nil {
		return s.fail(c, err)
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.store.Put(ctx, s.rig.Model, name, resp.Spec); err != nil {
			s.log.Warn("persisting constraint override failed", zap.String("bone", name), zap.Error(err))
		} else {
			resp.Persisted = true
		}
	}
	return c.JSON(resp)
}

func (s *Server) postLock(c fiber.Ctx) error {
	name := c.Params("name")
	var req lockRequest
	if err := decode(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.do(func(r *rig.Rig) error {
		return r.LockBoneByName(name, req.Locked)
	}); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"bone": name, "locked": req.Locked})
}

func (s *Server) postSolve(c fiber.Ctx) error {
	var req solveRequest
	if err := decode(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Bone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bone required"})
	}

	var res ik.Result
	if err := s.do(func(r *rig.Rig) error {
		var err error
		res, err = r.Solve(req.Bone, math.Vec3FromArray(req.Target))
		return err
	}); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) postReset(c fiber.Ctx) error {
	if err := s.do(func(r *rig.Rig) error {
		r.ResetPose()
		return nil
	}); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getPresets(c fiber.Ctx) error {
	if s.store == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "preset store disabled"})
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	overrides, err := s.store.List(ctx, s.rig.Model)
	if err != nil {
		return s.fail(c, err)
	}
	if overrides == nil {
		overrides = []store.Override{}
	}
	return c.JSON(overrides)
}

func decode(c fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return errors.New("empty body")
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return errors.New("invalid json")
	}
	return nil
}

// fail maps domain errors to HTTP status codes.
func (s *Server) fail(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, rig.ErrUnknownBone), errors.Is(err, store.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, constraint.ErrInvalidSpec):
		status = fiber.StatusBadRequest
	case errors.Is(err, rig.ErrClosed):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = fiber.StatusGatewayTimeout
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
