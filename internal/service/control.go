package service

import (
	"context"
	"errors"
	"fmt"

	"fan_controller"
	"fan_controller/internal/engine"
)

// Commander executes a manual command through the node's control path.
type Commander interface {
	Submit(ctx context.Context, cmd engine.Command) (fan_controller.NodeState, error)
}

type ControlService struct {
	node Commander
}

func NewControlService(node Commander) *ControlService {
	return &ControlService{node: node}
}

var ErrInvalidSpeed = fmt.Errorf("invalid speed: must be between %d and %d", engine.MinSpeed, engine.MaxSpeed)

// Increase steps the manual speed up, entering manual mode if needed.
func (s *ControlService) Increase(ctx context.Context) (fan_controller.NodeState, error) {
	return s.node.Submit(ctx, engine.Command{Kind: engine.CmdIncrease})
}

// Decrease steps the manual speed down, entering manual mode if needed.
// An active override still holds the fan at its minimum.
func (s *ControlService) Decrease(ctx context.Context) (fan_controller.NodeState, error) {
	return s.node.Submit(ctx, engine.Command{Kind: engine.CmdDecrease})
}

// SetSpeed sets an absolute manual speed.
func (s *ControlService) SetSpeed(ctx context.Context, speed int) (fan_controller.NodeState, error) {
	if speed < engine.MinSpeed || speed > engine.MaxSpeed {
		return fan_controller.NodeState{}, ErrInvalidSpeed
	}
	return s.node.Submit(ctx, engine.Command{Kind: engine.CmdSet, Speed: speed})
}

// Auto leaves manual mode; the manual speed becomes the auto set speed.
func (s *ControlService) Auto(ctx context.Context) (fan_controller.NodeState, error) {
	return s.node.Submit(ctx, engine.Command{Kind: engine.CmdRelease})
}

// IsUnavailable reports whether err means the node could not take the command now.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNodeBusy) || errors.Is(err, ErrNodeStopped)
}
