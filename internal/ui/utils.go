package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var (
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	success = color.New(color.FgGreen)
	info    = color.New(color.FgBlue)
)

// Console reads answers and prints coloured messages.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// PrintWarning displays a warning message with consistent formatting
func (c *Console) PrintWarning(message string) {
	warning.Fprintf(c.out, "\nWarning:\n%s\n", message)
}

func (c *Console) PrintError(message string) {
	failure.Fprintf(c.out, "\nError: %s\n", message)
}

func (c *Console) PrintSuccess(message string) {
	success.Fprintf(c.out, "\n%s\n", message)
}

func (c *Console) PrintInfo(message string) {
	info.Fprint(c.out, message)
}

// ReadString reads one trimmed line. At end of input it returns io.EOF.
func (c *Console) ReadString(prompt string) (string, error) {
	c.PrintInfo(prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadInt reads an integer within [min, max].
func (c *Console) ReadInt(prompt string, min, max int) (int, error) {
	input, err := c.ReadString(prompt)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}
	return value, nil
}

// Select lists options and returns the chosen one.
func (c *Console) Select(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no %s available", strings.ToLower(title))
	}
	success.Fprintf(c.out, "\n%s:\n", title)
	for i, opt := range options {
		success.Fprintf(c.out, "%d. %s\n", i+1, opt)
	}
	choice, err := c.ReadInt("Enter your choice: ", 1, len(options))
	if err != nil {
		return "", err
	}
	return options[choice-1], nil
}
