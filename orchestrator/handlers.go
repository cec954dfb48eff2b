package orchestrator

import (
	"context"
	"fmt"
	"strings"
)

// Generic intent handlers. Each stores raw text under a named key in
// AgentResponses and converges on synthesize_response. An LLM or
// knowledge failure degrades to a stock reply instead of failing the
// turn.

const degradedHandlerReply = "Tuve un problema para procesar tu consulta. ¿Podés reformularla?"

func (o *Orchestrator) handleTheoretical(ctx context.Context, s State) (State, error) {
	var material strings.Builder
	if o.knowledge != nil {
		hits, err := o.knowledge.Search(ctx, s.Context.CurrentMessage, 3)
		if err != nil {
			o.logger.Warn("orchestrator: theory search failed: %v", err)
		}
		for _, hit := range hits {
			fmt.Fprintf(&material, "- %s: %s\n", hit.Title, hit.Snippet)
		}
	}

	prompt := fmt.Sprintf("Pregunta teórica del estudiante:\n%s\n", s.Context.CurrentMessage)
	if material.Len() > 0 {
		prompt += fmt.Sprintf("\nMaterial de la cátedra relacionado:\n%s", material.String())
	}
	prompt += "\nRespondé la pregunta con precisión conceptual y un ejemplo corto."

	reply, err := o.client.GenerateText(ctx, tutorSystem, prompt)
	if err != nil {
		o.logger.Warn("orchestrator: theoretical handler failed: %v", err)
		reply = degradedHandlerReply
	}
	s.setResponse("theoretical_response", reply)
	return s, nil
}

func (o *Orchestrator) handlePracticalGeneral(ctx context.Context, s State) (State, error) {
	var practiceInfo string
	if o.knowledge != nil && s.Context.Memory != nil && s.Context.Memory.Context.CurrentPractice > 0 {
		rec, err := o.knowledge.PracticeDetails(ctx, s.Context.Memory.Context.CurrentPractice)
		if err != nil {
			o.logger.Warn("orchestrator: practice lookup failed: %v", err)
		} else if rec != nil {
			practiceInfo = fmt.Sprintf("El estudiante trabaja la práctica %d: %s. %s",
				rec.Number, rec.Title, rec.Description)
		}
	}

	prompt := fmt.Sprintf("Consulta sobre las prácticas:\n%s\n", s.Context.CurrentMessage)
	if practiceInfo != "" {
		prompt += "\n" + practiceInfo + "\n"
	}
	prompt += "\nOrientá al estudiante sobre cómo encarar la práctica, sin resolver ejercicios."

	reply, err := o.client.GenerateText(ctx, tutorSystem, prompt)
	if err != nil {
		o.logger.Warn("orchestrator: practical general handler failed: %v", err)
		reply = degradedHandlerReply
	}
	s.setResponse("practical_general_response", reply)
	return s, nil
}

func (o *Orchestrator) handleExploration(ctx context.Context, s State) (State, error) {
	var objectives []string
	if o.knowledge != nil {
		subject := s.Context.Subject
		if subject == "" && s.Context.Memory != nil {
			subject = s.Context.Memory.Context.CurrentSubject
		}
		var err error
		objectives, err = o.knowledge.SubjectObjectives(ctx, subject)
		if err != nil {
			o.logger.Warn("orchestrator: objectives lookup failed: %v", err)
		}
	}

	prompt := fmt.Sprintf("El estudiante quiere explorar la materia:\n%s\n", s.Context.CurrentMessage)
	if len(objectives) > 0 {
		prompt += "\nObjetivos de la materia:\n"
		for _, obj := range objectives {
			prompt += "- " + obj + "\n"
		}
	}
	prompt += "\nProponé caminos de estudio concretos conectados con los objetivos."

	reply, err := o.client.GenerateText(ctx, tutorSystem, prompt)
	if err != nil {
		o.logger.Warn("orchestrator: exploration handler failed: %v", err)
		reply = degradedHandlerReply
	}
	s.setResponse("exploration_response", reply)
	return s, nil
}

func (o *Orchestrator) handleSocial(ctx context.Context, s State) (State, error) {
	prompt := fmt.Sprintf("El estudiante escribió: %q\nRespondé el saludo o la despedida en una o dos oraciones, "+
		"recordándole que podés ayudarlo con la materia.", s.Context.CurrentMessage)

	reply, err := o.client.GenerateText(ctx, tutorSystem, prompt)
	if err != nil {
		o.logger.Warn("orchestrator: social handler failed: %v", err)
		reply = "¡Hola! Soy LUCA, tu tutor de bases de datos. ¿En qué te puedo ayudar?"
	}
	s.setResponse("social_response", reply)
	return s, nil
}

func (o *Orchestrator) handleOffTopic(ctx context.Context, s State) (State, error) {
	prompt := fmt.Sprintf("El estudiante escribió algo fuera de tema: %q\n"+
		"Respondé con amabilidad que solo podés ayudar con la materia y redirigí la conversación.",
		s.Context.CurrentMessage)

	reply, err := o.client.GenerateText(ctx, tutorSystem, prompt)
	if err != nil {
		o.logger.Warn("orchestrator: off-topic handler failed: %v", err)
		reply = "Eso se escapa de la materia. ¿Querés que veamos algo de bases de datos?"
	}
	s.setResponse("off_topic_response", reply)
	return s, nil
}
