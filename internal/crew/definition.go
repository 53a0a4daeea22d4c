// Package crew runs a fixed sequence of LLM-backed agent tasks, each agent
// working through a bounded tool-calling loop.
package crew

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AgentConfig is one entry of agents.yaml
type AgentConfig struct {
	Role      string   `yaml:"role" json:"role"`
	Goal      string   `yaml:"goal" json:"goal"`
	Backstory string   `yaml:"backstory" json:"backstory"`
	Tools     []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	MaxIter   int      `yaml:"max_iter,omitempty" json:"max_iter,omitempty"`
	Verbose   bool     `yaml:"verbose,omitempty" json:"verbose,omitempty"`
}

// TaskConfig is one entry of tasks.yaml. A nil Context means "all earlier
// task outputs"; an empty list means none.
type TaskConfig struct {
	Name           string   `yaml:"-" json:"name"`
	Description    string   `yaml:"description" json:"description"`
	ExpectedOutput string   `yaml:"expected_output" json:"expected_output"`
	Agent          string   `yaml:"agent" json:"agent"`
	Tools          []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	Context        []string `yaml:"context" json:"context,omitempty"`
}

// Definition is a complete crew: agents by key plus tasks in run order
type Definition struct {
	Agents map[string]AgentConfig
	Tasks  []TaskConfig
}

// LoadDefinition reads and validates agents and tasks files
func LoadDefinition(agentsFile, tasksFile string) (*Definition, error) {
	agents, err := LoadAgents(agentsFile)
	if err != nil {
		return nil, err
	}
	tasks, err := LoadTasks(tasksFile)
	if err != nil {
		return nil, err
	}
	def := &Definition{Agents: agents, Tasks: tasks}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// LoadAgents reads agents.yaml
func LoadAgents(path string) (map[string]AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configuration file %s not found: %w", path, err)
	}
	agents := map[string]AgentConfig{}
	if err := yaml.Unmarshal(data, &agents); err != nil {
		return nil, fmt.Errorf("error parsing YAML file %s: %w", path, err)
	}
	return agents, nil
}

// LoadTasks reads tasks.yaml keeping the order tasks are declared in
func LoadTasks(path string) ([]TaskConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configuration file %s not found: %w", path, err)
	}
	tasks, err := parseTasks(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing YAML file %s: %w", path, err)
	}
	return tasks, nil
}

func parseTasks(data []byte) ([]TaskConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: tasks must be a mapping of task name to task", root.Line)
	}

	tasks := make([]TaskConfig, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		var task TaskConfig
		if err := value.Decode(&task); err != nil {
			return nil, fmt.Errorf("task %s: %w", key.Value, err)
		}
		task.Name = key.Value
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Validate checks that every task names a known agent and only refers to
// earlier tasks as context
func (d *Definition) Validate() error {
	if len(d.Tasks) == 0 {
		return fmt.Errorf("crew has no tasks")
	}
	seen := make(map[string]bool, len(d.Tasks))
	for _, task := range d.Tasks {
		if task.Description == "" {
			return fmt.Errorf("task %s: description is required", task.Name)
		}
		if _, ok := d.Agents[task.Agent]; !ok {
			return fmt.Errorf("task %s: unknown agent %q", task.Name, task.Agent)
		}
		for _, dep := range task.Context {
			if !seen[dep] {
				return fmt.Errorf("task %s: context task %q must be declared before it", task.Name, dep)
			}
		}
		if seen[task.Name] {
			return fmt.Errorf("task %s: declared twice", task.Name)
		}
		seen[task.Name] = true
	}
	return nil
}

// ToolNames returns every tool referenced by agents or tasks
func (d *Definition) ToolNames() []string {
	var names []string
	seen := map[string]bool{}
	add := func(list []string) {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	for _, task := range d.Tasks {
		add(d.Agents[task.Agent].Tools)
		add(task.Tools)
	}
	return names
}
