package memory

import (
	"github.com/secmon-lab/switchboard/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	customer *customerRepository
	signup   *signupRepository
	task     *taskRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		customer: newCustomerRepository(),
		signup:   newSignupRepository(),
		task:     newTaskRepository(),
	}
}

func (m *Memory) Customer() interfaces.CustomerRepository {
	return m.customer
}

func (m *Memory) Signup() interfaces.SignupRepository {
	return m.signup
}

func (m *Memory) Task() interfaces.TaskRepository {
	return m.task
}

func (m *Memory) Close() error {
	return nil
}
