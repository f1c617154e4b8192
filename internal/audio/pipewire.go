package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// PipeWire manages PipeWire port queries through pw-link
type PipeWire struct{}

// NewPipeWire creates a new PipeWire instance
func NewPipeWire() *PipeWire {
	return &PipeWire{}
}

// ListPorts returns all output ports known to PipeWire. Output ports are the
// ones a capture can be targeted at.
func (pw *PipeWire) ListPorts(ctx context.Context) ([]string, error) {
	output, err := exec.CommandContext(ctx, "pw-link", "-o").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list PipeWire ports: %w", err)
	}
	return parsePortList(string(output)), nil
}

// parsePortList extracts port names from pw-link output
func parsePortList(output string) []string {
	var ports []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Input ports:") || strings.HasPrefix(line, "Output ports:") {
			continue
		}
		// Link lines are indented with arrows under their port.
		if strings.HasPrefix(line, "|->") || strings.HasPrefix(line, "|<-") {
			continue
		}
		ports = append(ports, line)
	}
	return ports
}

// ValidatePort checks if a specific port exists and has no duplicates
func (pw *PipeWire) ValidatePort(ctx context.Context, portName string) error {
	if portName == "" || portName == "default" {
		return nil
	}

	ports, err := pw.ListPorts(ctx)
	if err != nil {
		return err
	}
	return validatePortInList(portName, ports)
}

func validatePortInList(portName string, ports []string) error {
	duplicates := findPortDuplicatesInList(portName, ports)
	if len(duplicates) == 0 {
		return fmt.Errorf("port not found: %s", portName)
	}
	if len(duplicates) > 1 {
		return fmt.Errorf("duplicate sources detected for '%s': %v. Please close conflicting applications", portName, duplicates)
	}
	return nil
}

// findPortDuplicatesInList finds all ports with exactly the same name
func findPortDuplicatesInList(portName string, allPorts []string) []string {
	var duplicates []string
	for _, port := range allPorts {
		if port == portName {
			duplicates = append(duplicates, port)
		}
	}
	return duplicates
}

// portNode returns the node part of a "node:port" name, which is what
// pw-record accepts as a target.
func portNode(portName string) string {
	if i := strings.LastIndex(portName, ":"); i > 0 {
		return portName[:i]
	}
	return portName
}
