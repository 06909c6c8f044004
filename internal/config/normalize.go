package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.Paths.normalize(); err != nil {
		return err
	}
	c.Store.normalize()
	c.Queue.normalize()
	c.Connectivity.normalize()
	c.Remote.normalize()
	c.Notifications.normalize()
	c.Agent.normalize()
	c.Logging.normalize()
	return nil
}

func (p *Paths) normalize() error {
	if strings.TrimSpace(p.StateDir) == "" {
		p.StateDir = DefaultStateDir
	}
	if strings.TrimSpace(p.LogDir) == "" {
		p.LogDir = DefaultLogDir
	}
	for _, field := range []*string{&p.StateDir, &p.LogDir} {
		expanded, err := ExpandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	if strings.TrimSpace(p.Socket) != "" {
		expanded, err := ExpandPath(p.Socket)
		if err != nil {
			return err
		}
		p.Socket = expanded
	}
	return nil
}

func (s *Store) normalize() {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = DefaultStoreDriver
	}
	if strings.TrimSpace(s.QueueKey) == "" {
		s.QueueKey = DefaultQueueKey
	}
}

func (q *Queue) normalize() {
	if q.MaxAttempts <= 0 {
		q.MaxAttempts = DefaultMaxAttempts
	}
}

func (cc *Connectivity) normalize() {
	cc.ProbeURL = strings.TrimSpace(cc.ProbeURL)
	if cc.ProbeURL == "" {
		cc.ProbeURL = DefaultProbeURL
	}
	if cc.ProbeInterval <= 0 {
		cc.ProbeInterval = DefaultProbeInterval
	}
	if cc.ProbeTimeout <= 0 {
		cc.ProbeTimeout = DefaultProbeTimeout
	}
}

func (r *Remote) normalize() {
	r.Endpoint = strings.TrimSpace(r.Endpoint)
	if r.Endpoint == "" {
		r.Endpoint = strings.TrimSpace(os.Getenv("COURIER_REMOTE_URL"))
	}
	if strings.TrimSpace(r.AuthToken) == "" {
		r.AuthToken = strings.TrimSpace(os.Getenv("COURIER_REMOTE_TOKEN"))
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultRemoteTimeout
	}
}

func (n *Notifications) normalize() {
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
	if n.RequestTimeout <= 0 {
		n.RequestTimeout = DefaultNtfyRequestTimeout
	}
}

func (a *Agent) normalize() {
	if a.PollInterval <= 0 {
		a.PollInterval = DefaultPollInterval
	}
	if a.ErrorRetryInterval <= 0 {
		a.ErrorRetryInterval = DefaultErrorRetryInterval
	}
}

func (l *Logging) normalize() {
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	if l.Format == "" {
		l.Format = DefaultLogFormat
	}
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
}
