// Package schema holds the shared data model of the tutoring core:
// student context, identified gaps and their evaluations, conversation
// memory, intent classification and the terminal response records
// exchanged between the workflows.
package schema
