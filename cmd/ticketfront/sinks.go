package main

import (
	"context"
	"time"

	"github.com/c360/ticketfront/errors"
	"github.com/c360/ticketfront/natsclient"
	"github.com/c360/ticketfront/pkg/retry"
	"github.com/c360/ticketfront/render"
)

// sinks is the set of reply sinks built from the sinks configuration, plus
// whatever must be closed when the command ends.
type sinks struct {
	multi   render.Multi
	closers []func()
}

func (s *sinks) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// buildSinks opens the JSON lines file and the NATS connection configured in
// sinks. The terminal sink is added by the caller, which knows where the
// terminal is.
func (a *app) buildSinks(ctx context.Context) (*sinks, error) {
	out := &sinks{}
	cfg := a.cfg.Sinks

	if cfg.JSONLPath != "" {
		jsonl, err := render.OpenJSONLines(cfg.JSONLPath)
		if err != nil {
			return nil, err
		}
		out.multi = append(out.multi, jsonl)
		out.closers = append(out.closers, func() {
			if err := jsonl.Close(); err != nil {
				a.logger.Warn("close reply log", "path", cfg.JSONLPath, "error", err)
			}
		})
		a.logger.Info("writing replies to file", "path", cfg.JSONLPath)
	}

	if cfg.NATS.URL != "" {
		sink, closeFn, err := a.natsSink(ctx)
		if err != nil {
			out.Close()
			return nil, err
		}
		out.multi = append(out.multi, sink)
		out.closers = append(out.closers, closeFn)
	}

	return out, nil
}

func (a *app) natsSink(ctx context.Context) (render.Sink, func(), error) {
	cfg := a.cfg.Sinks.NATS
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = render.DefaultSubjectPrefix
	}

	nc, err := natsclient.NewClient(cfg.URL,
		natsclient.WithName(appName),
		natsclient.WithLogger(a.logger),
		natsclient.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, nil, err
	}

	if err := retry.Do(ctx, retry.Quick(), func() error {
		return nc.Connect(ctx)
	}); err != nil {
		return nil, nil, errors.WrapTransient(err, "main", "natsSink", "connect to "+cfg.URL)
	}

	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := nc.Close(closeCtx); err != nil {
			a.logger.Warn("close nats connection", "error", err)
		}
	}

	var pub render.Publisher = nc
	if cfg.Stream != "" {
		if _, err := nc.EnsureStream(ctx, cfg.Stream, cfg.SubjectPrefix+".>"); err != nil {
			closeFn()
			return nil, nil, err
		}
		pub = render.PublisherFunc(nc.PublishToStream)
	}

	a.monitor.Register("nats", nc)
	a.logger.Info("publishing replies to nats", "url", cfg.URL, "prefix", cfg.SubjectPrefix, "stream", cfg.Stream)
	return render.NewNATS(pub, cfg.SubjectPrefix, a.logger), closeFn, nil
}
