package silo

import "github.com/tailored-agentic-units/silo/observability"

const (
	// Tree construction
	EventNodeCreate     observability.EventType = "silo.node.create"
	EventNodeRebuild    observability.EventType = "silo.node.rebuild"
	EventNodeReplace    observability.EventType = "silo.node.replace"
	EventModifierAttach observability.EventType = "silo.modifier.attach"

	// Update queue
	EventTaskEnqueue observability.EventType = "silo.task.enqueue"
	EventTaskApply   observability.EventType = "silo.task.apply"
	EventTaskFail    observability.EventType = "silo.task.fail"
	EventRunBusy     observability.EventType = "silo.run.busy"

	// Subscribers
	EventNotify      observability.EventType = "silo.notify"
	EventNotifyFail  observability.EventType = "silo.notify.fail"
	EventSubscribe   observability.EventType = "silo.subscribe"
	EventUnsubscribe observability.EventType = "silo.unsubscribe"
)
