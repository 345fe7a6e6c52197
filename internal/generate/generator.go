package generate

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"strandviz/internal/domain"
)

// Generator turns a free-text workflow description into a workflow built
// from one of the fixed domain templates. Matching is keyword based; an
// unrecognized description falls back to the generic template.
type Generator struct{}

func New() *Generator {
	return &Generator{}
}

type template struct {
	workflowType string
	keywords     []string
	agents       []domain.Agent
}

var templates = []template{
	{
		workflowType: "customer-support",
		keywords:     []string{"support", "customer", "ticket", "inquiry", "complaint", "help desk"},
		agents: []domain.Agent{
			{ID: "intake", Name: "Intake Agent", Role: "Receives and validates customer inquiries", Icon: "🎯", Tools: []string{"validator"}},
			{ID: "classifier", Name: "Classification Agent", Role: "Categorizes issues", Icon: "🏷️", Tools: []string{"classifier"}},
			{ID: "resolver", Name: "Resolution Agent", Role: "Generates solutions", Icon: "💡", Tools: []string{"knowledge-base"}},
			{ID: "quality", Name: "Quality Agent", Role: "Reviews responses", Icon: "✅", Tools: []string{"review"}},
			{ID: "notification", Name: "Notification Agent", Role: "Sends updates", Icon: "📧", Tools: []string{"mailer"}},
		},
	},
	{
		workflowType: "ecommerce",
		keywords:     []string{"order", "shop", "payment", "ecommerce", "e-commerce", "cart", "shipping", "inventory"},
		agents: []domain.Agent{
			{ID: "order", Name: "Order Agent", Role: "Processes incoming orders", Icon: "🛒", Tools: []string{"order-intake"}},
			{ID: "payment", Name: "Payment Agent", Role: "Handles payment processing", Icon: "💳", Tools: []string{"payments"}},
			{ID: "inventory", Name: "Inventory Agent", Role: "Manages stock", Icon: "📦", Tools: []string{"stock"}},
			{ID: "shipping", Name: "Shipping Agent", Role: "Coordinates delivery", Icon: "🚚", Tools: []string{"carrier"}},
			{ID: "notification", Name: "Notification Agent", Role: "Sends customer updates", Icon: "📧", Tools: []string{"mailer"}},
		},
	},
	{
		workflowType: "content",
		keywords:     []string{"content", "blog", "article", "write", "publish", "editorial"},
		agents: []domain.Agent{
			{ID: "planner", Name: "Content Planner", Role: "Plans content strategy", Icon: "📋", Tools: []string{"calendar"}},
			{ID: "writer", Name: "Content Writer", Role: "Creates written content", Icon: "✍️", Tools: []string{"editor"}},
			{ID: "editor", Name: "Content Editor", Role: "Reviews and refines content", Icon: "📝", Tools: []string{"review"}},
			{ID: "designer", Name: "Visual Designer", Role: "Creates visual assets", Icon: "🎨", Tools: []string{"design"}},
			{ID: "publisher", Name: "Publishing Agent", Role: "Publishes content", Icon: "🚀", Tools: []string{"cms"}},
		},
	},
	{
		workflowType: "hr",
		keywords:     []string{"hr", "recruit", "hire", "hiring", "candidate", "interview", "onboard"},
		agents: []domain.Agent{
			{ID: "sourcing", Name: "Sourcing Agent", Role: "Finds candidates", Icon: "🔍", Tools: []string{"search"}},
			{ID: "screening", Name: "Screening Agent", Role: "Reviews applications", Icon: "📄", Tools: []string{"screening"}},
			{ID: "interview", Name: "Interview Agent", Role: "Coordinates interviews", Icon: "🗓️", Tools: []string{"calendar"}},
			{ID: "assessment", Name: "Assessment Agent", Role: "Evaluates candidates", Icon: "📊", Tools: []string{"scoring"}},
			{ID: "offer", Name: "Offer Agent", Role: "Manages offers", Icon: "🤝", Tools: []string{"contracts"}},
		},
	},
}

var genericTemplate = template{
	workflowType: "generic",
	agents: []domain.Agent{
		{ID: "input", Name: "Input Agent", Role: "Receives input", Icon: "📥", Tools: []string{"intake"}},
		{ID: "processor", Name: "Processing Agent", Role: "Processes data", Icon: "⚙️", Tools: []string{"transform"}},
		{ID: "output", Name: "Output Agent", Role: "Delivers output", Icon: "📤", Tools: []string{"delivery"}},
	},
}

// Detect returns the workflow type whose keywords match the description.
func (g *Generator) Detect(description string) string {
	lowered := strings.ToLower(description)
	for _, tpl := range templates {
		for _, kw := range tpl.keywords {
			if strings.Contains(lowered, kw) {
				return tpl.workflowType
			}
		}
	}
	return genericTemplate.workflowType
}

// Build creates a workflow from the description. When workflowType is
// empty the type is detected from the description text. Topology is a
// straight chain in template order plus one feedback edge from the last
// agent back to the first when there are at least three agents.
func (g *Generator) Build(description, workflowType string) domain.Workflow {
	if workflowType == "" {
		workflowType = g.Detect(description)
	}
	tpl := genericTemplate
	for _, candidate := range templates {
		if candidate.workflowType == workflowType {
			tpl = candidate
			break
		}
	}

	agents := make([]domain.Agent, len(tpl.agents))
	copy(agents, tpl.agents)

	comms := make([]domain.Communication, 0, len(agents))
	for i := 0; i+1 < len(agents); i++ {
		comms = append(comms, domain.Communication{
			From:     agents[i].ID,
			To:       agents[i+1].ID,
			Protocol: "async-message",
			Trigger:  "on-completion",
			Kind:     domain.CommunicationKindChain,
		})
	}
	if len(agents) >= 3 {
		comms = append(comms, domain.Communication{
			From:     agents[len(agents)-1].ID,
			To:       agents[0].ID,
			Protocol: "async-message",
			Trigger:  "on-feedback",
			Kind:     domain.CommunicationKindFeedback,
		})
	}

	return domain.Workflow{
		ID:             uuid.NewString(),
		SystemName:     tpl.workflowType + "_strand",
		WorkflowType:   tpl.workflowType,
		Description:    description,
		Agents:         agents,
		Communications: comms,
		Memory: domain.MemoryConfig{
			Type:        "shared",
			Strategy:    "event-driven",
			Persistence: "in-memory",
		},
		Metrics: domain.MetricsConfig{
			Enabled:           true,
			TrackResponseTime: true,
			TrackSuccessRate:  true,
		},
		CreatedAt: time.Now().UTC(),
	}
}
