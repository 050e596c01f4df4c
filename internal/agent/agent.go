package agent

// DefaultInstructions is used when an agent is created without instructions.
const DefaultInstructions = "You are a helpful AI assistant. Please respond to the user's request accurately and concisely."

// Agent is a named assistant persona: its instructions become the system
// prompt of every run. The zero Model means the runner's configured model.
type Agent struct {
	Name         string
	Instructions string
	Model        string
}

// New creates an agent with the given name and instructions. Empty
// instructions fall back to DefaultInstructions.
func New(name, instructions string) Agent {
	if instructions == "" {
		instructions = DefaultInstructions
	}
	return Agent{Name: name, Instructions: instructions}
}

// WithModel returns a copy of the agent pinned to a specific model.
func (a Agent) WithModel(model string) Agent {
	a.Model = model
	return a
}
