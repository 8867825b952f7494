package handler

import (
	"fmt"
	"sync"

	"task_manager/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidatorsOnce sync.Once

// RegisterValidators installs the task_priority and task_status binding tags
// on gin's validator.
func RegisterValidators() error {
	var err error
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		if err = v.RegisterValidation("task_priority", func(fl validator.FieldLevel) bool {
			return model.IsValidPriority(fl.Field().String())
		}); err != nil {
			return
		}
		err = v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
			return model.IsValidStatus(fl.Field().String())
		})
	})
	return err
}
