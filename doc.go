// LUCA Core - Conversational Tutoring Engine for Database Courses
//
// LUCA Core is the orchestration engine behind LUCA, an educational
// assistant for a university database course. It receives one student
// message per turn, classifies the intent behind it, routes the turn
// through a typed state machine and answers with Socratic guidance
// that never hands over the solution.
//
// # Quick Start
//
//	chat, _ := openaicompat.New(openaicompat.WithModel("gpt-4o-mini"))
//	client := llm.NewClient(chat)
//
//	tutor, _ := orchestrator.New(client, orchestrator.Options{
//		Knowledge: provider,
//		Memory:    memorystore.NewManager(memory.NewKVStore()),
//	})
//
//	resp := tutor.RunConversation(ctx, schema.ConversationContext{
//		SessionID:      "s1",
//		UserID:         "maru",
//		CurrentMessage: "No me sale el ejercicio 1.d de la práctica 2",
//		Subject:        "Bases de Datos",
//	}, "s1")
//	fmt.Println(resp.Message)
//
// RunConversation never returns an error: model failures, missing
// content and persistence outages all resolve to a well-formed
// response with a degraded confidence.
//
// # Package Structure
//
// graph/
// The typed state-machine engine both workflows run on: nodes,
// static and conditional edges, per-node retry policies, a step limit
// and optional checkpointing per thread.
//
// orchestrator/
// The conversation workflow. Classifies intent, dispatches to one of
// six handlers, synthesizes the reply and advances conversation
// memory in a single durable step. Also hosts the session manager.
//
// gapanalyzer/
// The learning-gap analysis workflow. Validates the educational
// context, identifies and evaluates gaps with bounded feedback
// iterations, and produces prioritized recommendations. Its
// RunAnalysis entry point never returns an error either.
//
// knowledge/
// Course content access: a FalkorDB graph provider, an in-memory
// provider, an HTML practice loader and an LLM theory fallback.
//
// memorystore/
// Long-term student memory over a pluggable key-value store, with a
// resilient variant that degrades to in-memory storage.
//
// store/
// Checkpoint and key-value persistence: in-memory, Redis, SQLite and
// Postgres backends.
//
// llm/
// The model client, strict JSON extraction from model output and an
// OpenAI-compatible chat provider.
//
// schema/
// The shared data model: conversation context and memory, intents,
// gaps, evaluations and response envelopes.
//
// See the examples directory for runnable programs.
package lucacore // import "github.com/lucaproject/luca-core"
