package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"smush/internal/service"
)

// consoleNotifier imprime toasts y diálogos en la terminal.
type consoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsoleNotifier(out io.Writer) *consoleNotifier {
	return &consoleNotifier{out: out}
}

func (n *consoleNotifier) Toast(level service.ToastLevel, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "[%s] %s\n", strings.ToUpper(level.String()), message)
}

func (n *consoleNotifier) Confirm(title, message, button string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "\n== %s ==\n%s\n(%s)\n", title, message, button)
}
