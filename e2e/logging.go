//go:build e2e

package e2e

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/testcontainers/testcontainers-go"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func StripAnsi(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

type LogSource string

const (
	SourceStdout LogSource = "stdout"
	SourceStderr LogSource = "stderr"
)

type LogSubscription struct {
	Node    string
	Source  LogSource
	Pattern string
	Regex   *regexp.Regexp
	MatchCh chan struct{}
}

func (s *LogSubscription) matches(content string) bool {
	if s.Regex != nil {
		return s.Regex.MatchString(content)
	}
	return strings.Contains(content, s.Pattern)
}

func (s *LogSubscription) notify() {
	select {
	case s.MatchCh <- struct{}{}:
	default:
	}
}

// LogManager fans container output out to subscribers. Everything is kept so a late subscriber still sees earlier lines.
type LogManager struct {
	mu          sync.Mutex
	subscribers []*LogSubscription
	history     map[string]map[LogSource]*strings.Builder
}

func NewLogManager() *LogManager {
	return &LogManager{
		history: make(map[string]map[LogSource]*strings.Builder),
	}
}

func (m *LogManager) buffer(node string, source LogSource) *strings.Builder {
	if _, ok := m.history[node]; !ok {
		m.history[node] = make(map[LogSource]*strings.Builder)
	}
	b, ok := m.history[node][source]
	if !ok {
		b = &strings.Builder{}
		m.history[node][source] = b
	}
	return b
}

func (m *LogManager) Accept(node string, source LogSource, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.buffer(node, source)
	b.WriteString(content)
	full := b.String()
	for _, sub := range m.subscribers {
		if sub.Node == node && sub.Source == source && sub.matches(full) {
			sub.notify()
		}
	}
}

func (m *LogManager) Subscribe(node string, source LogSource, pattern string, isRegex bool) (*LogSubscription, error) {
	sub := &LogSubscription{
		Node:    node,
		Source:  source,
		Pattern: pattern,
		MatchCh: make(chan struct{}, 1),
	}
	if isRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		sub.Regex = re
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, sub)
	if sub.matches(m.buffer(node, source).String()) {
		sub.notify()
	}
	return sub, nil
}

func (m *LogManager) Unsubscribe(sub *LogSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subscribers {
		if s == sub {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			break
		}
	}
}

type UnifiedLogConsumer struct {
	Node    string
	Manager *LogManager
}

func (c *UnifiedLogConsumer) Accept(l testcontainers.Log) {
	source := SourceStdout
	if l.LogType == "stderr" {
		source = SourceStderr
	}
	content := StripAnsi(string(l.Content))
	fmt.Printf("[%s:%s] %s", c.Node, source, content)
	c.Manager.Accept(c.Node, source, content)
}
