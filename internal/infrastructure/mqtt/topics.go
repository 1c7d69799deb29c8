package mqtt

import (
	"fmt"
	"strings"
)

// DefaultPrefix is the root of every topic when none is configured.
const DefaultPrefix = "rotexcan"

// Topics builds the topic hierarchy of one heat pump node:
//
//	rotexcan/<node>/state/<entity_id>    retained entity values
//	rotexcan/<node>/set/<entity_id>      operator writes
//	rotexcan/<node>/command/<name>       custom, dhw_run, dump
//	rotexcan/<node>/event/<kind>         fault confirmations
//	rotexcan/<node>/health               periodic bridge health
//	rotexcan/<node>/status               online/offline, also the LWT
type Topics struct {
	base string
}

// NewTopics returns the builder for node under prefix. An empty prefix
// selects DefaultPrefix.
func NewTopics(prefix, node string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{base: strings.TrimSuffix(prefix, "/") + "/" + node}
}

// Base returns "<prefix>/<node>".
func (t Topics) Base() string { return t.base }

// State returns the retained value topic of an entity.
//
// Example: rotexcan/hpsu/state/tv
func (t Topics) State(entityID string) string {
	return fmt.Sprintf("%s/state/%s", t.base, entityID)
}

// Set returns the write topic of an entity.
//
// Example: rotexcan/hpsu/set/operating_mode
func (t Topics) Set(entityID string) string {
	return fmt.Sprintf("%s/set/%s", t.base, entityID)
}

// AllSets matches every entity write topic.
func (t Topics) AllSets() string {
	return t.base + "/set/+"
}

// Command returns the topic of a named operator command.
//
// Example: rotexcan/hpsu/command/custom
func (t Topics) Command(name string) string {
	return fmt.Sprintf("%s/command/%s", t.base, name)
}

// AllCommands matches every operator command topic.
func (t Topics) AllCommands() string {
	return t.base + "/command/+"
}

// Event returns the topic of an engine event.
//
// Example: rotexcan/hpsu/event/fault
func (t Topics) Event(kind string) string {
	return fmt.Sprintf("%s/event/%s", t.base, kind)
}

// Health returns the bridge health topic.
func (t Topics) Health() string {
	return t.base + "/health"
}

// Status returns the online/offline topic used for the last will.
func (t Topics) Status() string {
	return t.base + "/status"
}

// All matches every topic of the node.
func (t Topics) All() string {
	return t.base + "/#"
}

// LastSegment returns the final path element of topic, which is the entity
// ID on set topics and the command name on command topics.
func LastSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
