package questions

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a bank from a YAML file. An empty path yields the default bank.
func LoadFile(path string) (Bank, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Bank{}, fmt.Errorf("reading questions file %s: %w", path, err)
	}

	var bank Bank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return Bank{}, fmt.Errorf("parsing questions file: %w", err)
	}

	if err := validateBank(bank); err != nil {
		return Bank{}, fmt.Errorf("validating questions file: %w", err)
	}

	return bank, nil
}

func validateBank(bank Bank) error {
	if len(bank.Phases) == 0 {
		return fmt.Errorf("at least one phase is required")
	}

	total := 0
	for i, phase := range bank.Phases {
		if strings.TrimSpace(phase.Title) == "" {
			return fmt.Errorf("phase %d must have a title", i+1)
		}
		if len(phase.Questions) == 0 {
			return fmt.Errorf("phase %q has no questions", phase.Title)
		}
		for j, q := range phase.Questions {
			if strings.TrimSpace(q) == "" {
				return fmt.Errorf("phase %q question %d is empty", phase.Title, j+1)
			}
		}
		total += len(phase.Questions)
	}

	if total != Count {
		return fmt.Errorf("bank has %d questions, expected %d", total, Count)
	}

	return nil
}
