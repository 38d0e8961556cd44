package events

import (
	"fmt"
	"strings"
)

// MessageTemplateEngine renders human-readable messages for lifecycle
// events.
type MessageTemplateEngine struct {
	templates map[Kind]string
}

// NewMessageTemplateEngine creates an engine with the default templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	engine := &MessageTemplateEngine{
		templates: make(map[Kind]string),
	}
	engine.loadDefaultTemplates()
	return engine
}

func (e *MessageTemplateEngine) loadDefaultTemplates() {
	e.templates[KindStarted] = "Service {{.Name}} started{{if .Stage}} in stage {{.Stage}}{{end}}"
	e.templates[KindPreShutdown] = "Service {{.Name}} is about to stop"
	e.templates[KindStopped] = "Service {{.Name}} stopped{{if .Emergency}} by emergency stop{{end}}"
	e.templates[KindFailed] = "Service {{.Name}} failed ({{.Reason}}){{if .Error}}: {{.Error}}{{end}}"
}

// Render generates the message for an event.
func (e *MessageTemplateEngine) Render(event LifecycleEvent) string {
	template, exists := e.templates[event.Kind]
	if !exists {
		return fmt.Sprintf("Event: %s for %s", string(event.Kind), event.ServiceName)
	}
	return e.renderTemplate(template, event)
}

// SetTemplate customizes the template for one kind.
func (e *MessageTemplateEngine) SetTemplate(kind Kind, template string) {
	e.templates[kind] = template
}

func (e *MessageTemplateEngine) renderTemplate(template string, event LifecycleEvent) string {
	stage := ""
	if v, ok := event.Meta(MetaStage); ok {
		stage = fmt.Sprint(v)
	}
	emergency, _ := event.Metadata[MetaEmergency].(bool)

	result := template
	result = e.renderConditional(result, "{{if .Stage}}", "{{end}}", stage != "")
	result = e.renderConditional(result, "{{if .Emergency}}", "{{end}}", emergency)
	result = e.renderConditional(result, "{{if .Error}}", "{{end}}", event.ErrorMessage != "")

	result = strings.ReplaceAll(result, "{{.Name}}", event.ServiceName)
	result = strings.ReplaceAll(result, "{{.Reason}}", string(event.FailureReason))
	result = strings.ReplaceAll(result, "{{.Error}}", event.ErrorMessage)
	result = strings.ReplaceAll(result, "{{.Stage}}", stage)
	return result
}

// renderConditional keeps or drops one {{if}}...{{end}} block.
func (e *MessageTemplateEngine) renderConditional(template, startMarker, endMarker string, condition bool) string {
	startIndex := strings.Index(template, startMarker)
	if startIndex == -1 {
		return template
	}

	endIndex := strings.Index(template[startIndex:], endMarker)
	if endIndex == -1 {
		return template
	}
	endIndex += startIndex

	before := template[:startIndex]
	after := template[endIndex+len(endMarker):]
	if condition {
		return before + template[startIndex+len(startMarker):endIndex] + after
	}
	return before + after
}
