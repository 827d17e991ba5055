package pubsub

import "github.com/google/uuid"

// instanceID distinguishes this process's consumers from other replicas.
var instanceID = uuid.New().String()[:8]
