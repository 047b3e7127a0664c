package engine

import (
	"fmt"
	"sort"

	"github.com/mosaicnetworks/maelnode/src/broadcast"
	"github.com/mosaicnetworks/maelnode/src/echo"
	"github.com/mosaicnetworks/maelnode/src/node"
	"github.com/mosaicnetworks/maelnode/src/uniqueid"
	"github.com/sirupsen/logrus"
)

// Names of the node kinds.
const (
	KindEcho      = "echo"
	KindUniqueIDs = "unique-ids"
	KindBroadcast = "broadcast"
)

var factories = map[string]func(logger *logrus.Entry) node.Behavior{
	KindEcho:      func(l *logrus.Entry) node.Behavior { return echo.NewNode(l) },
	KindUniqueIDs: func(l *logrus.Entry) node.Behavior { return uniqueid.NewNode(l) },
	KindBroadcast: func(l *logrus.Entry) node.Behavior { return broadcast.NewNode(l) },
}

// Kinds returns the sorted names of the node kinds.
func Kinds() []string {
	res := make([]string, 0, len(factories))
	for k := range factories {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// NewBehavior returns a fresh Behavior of the named kind.
func NewBehavior(kind string, logger *logrus.Entry) (node.Behavior, error) {
	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown node kind %q, expected one of %v", kind, Kinds())
	}
	return factory(logger), nil
}
