// Package engine assembles a node process from its configuration: the
// Behavior of the configured kind, the optional journal and the optional HTTP
// service around a node.Node.
package engine

import (
	"io"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/maelnode/src/config"
	"github.com/mosaicnetworks/maelnode/src/journal"
	"github.com/mosaicnetworks/maelnode/src/node"
	"github.com/mosaicnetworks/maelnode/src/service"
	"github.com/mosaicnetworks/maelnode/src/telemetry"
	"github.com/mosaicnetworks/maelnode/src/version"
	"github.com/sirupsen/logrus"
)

// Engine is the top-level object of a node process.
type Engine struct {
	Config   *config.Config
	RunID    string
	Behavior node.Behavior
	Node     *node.Node
	Journal  *journal.Journal
	Service  *service.Service
	logger   *logrus.Entry
}

// NewEngine is a factory method that returns an uninitialized Engine.
func NewEngine(conf *config.Config) *Engine {
	engine := &Engine{
		Config: conf,
		RunID:  uuid.New().String(),
	}

	return engine
}

func (e *Engine) initBehavior() error {
	behavior, err := NewBehavior(e.Config.NodeKind, e.logger)
	if err != nil {
		return err
	}

	e.Behavior = behavior

	return nil
}

func (e *Engine) initJournal() error {
	if !e.Config.Journal {
		return nil
	}

	e.logger.WithField("path", e.Config.JournalDir).Debug("Opening journal")

	j, err := journal.Open(e.Config.JournalDir, e.RunID, e.logger)
	if err != nil {
		return err
	}

	e.Journal = j

	return nil
}

func (e *Engine) initNode() error {
	// a nil *journal.Journal must not end up in the interface
	var recorder node.Recorder
	if e.Journal != nil {
		recorder = e.Journal
	}

	e.Node = node.NewNode(node.NewConfig(e.logger, recorder, e.RunID), e.Behavior)

	return nil
}

func (e *Engine) initService() error {
	if e.Config.ServiceAddr != "" {
		e.Service = service.NewService(e.Config.ServiceAddr, e.Node, e.logger)
	}
	return nil
}

// Init builds every component. It must be called once, before Run.
func (e *Engine) Init() error {
	e.logger = e.Config.Logger().WithField("kind", e.Config.NodeKind)

	if err := e.initBehavior(); err != nil {
		return err
	}

	if err := e.initJournal(); err != nil {
		return err
	}

	if err := e.initNode(); err != nil {
		return err
	}

	if err := e.initService(); err != nil {
		return err
	}

	telemetry.SetBuildInfo(version.Version, e.Config.NodeKind)

	return nil
}

// Run starts the service, if any, and runs the node on the given streams
// until the input ends or a fatal error occurs. The journal is closed on
// return.
func (e *Engine) Run(in io.Reader, out io.Writer) error {
	if e.Service != nil {
		go e.Service.Serve()
	}

	defer e.closeJournal()

	return e.Node.Run(in, out)
}

func (e *Engine) closeJournal() {
	if e.Journal == nil {
		return
	}
	if err := e.Journal.Close(); err != nil {
		e.logger.WithError(err).Warn("Closing journal")
	}
}
