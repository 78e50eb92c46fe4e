package printer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DeviceSelector picks the device a session connects to. It runs again every time
// the session has no cached device.
type DeviceSelector interface {
	Select(ctx context.Context) (string, error)
}

// FixedSelector always selects the same device.
type FixedSelector string

// Select returns the configured device, or ErrNoDevice when empty.
func (s FixedSelector) Select(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoDevice
	}
	return string(s), nil
}

type choiceKey struct{}

type choice struct {
	device    string
	cancelled bool
}

// WithDeviceChoice attaches the operator's device choice to ctx.
func WithDeviceChoice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, choiceKey{}, choice{device: device})
}

// WithSelectionCancelled records on ctx that the operator dismissed the device picker.
func WithSelectionCancelled(ctx context.Context) context.Context {
	return context.WithValue(ctx, choiceKey{}, choice{cancelled: true})
}

// RequestSelector takes the choice carried on the request context and otherwise
// defers to Fallback.
type RequestSelector struct {
	Fallback DeviceSelector
}

// Select implements DeviceSelector.
func (s RequestSelector) Select(ctx context.Context) (string, error) {
	if c, ok := ctx.Value(choiceKey{}).(choice); ok {
		if c.cancelled {
			return "", ErrUserCancelled
		}
		if c.device != "" {
			return c.device, nil
		}
	}
	if s.Fallback == nil {
		return "", ErrNoDevice
	}
	return s.Fallback.Select(ctx)
}

// PromptSelector asks an operator on a terminal to pick one of the listed ports.
// An empty answer or "q" cancels.
type PromptSelector struct {
	In   io.Reader
	Out  io.Writer
	List func() ([]string, error)
}

// Select implements DeviceSelector.
func (s PromptSelector) Select(ctx context.Context) (string, error) {
	ports, err := s.List()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", ErrNoDevice
	}

	for i, p := range ports {
		fmt.Fprintf(s.Out, "  [%d] %s\n", i+1, p)
	}
	fmt.Fprint(s.Out, "Select printer (q to cancel): ")

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(s.In).ReadString('\n')
		answer <- strings.TrimSpace(line)
	}()

	var line string
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line = <-answer:
	}

	if line == "" || strings.EqualFold(line, "q") {
		return "", ErrUserCancelled
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(ports) {
		// a port name typed in full is accepted as is
		return line, nil
	}
	return ports[n-1], nil
}
