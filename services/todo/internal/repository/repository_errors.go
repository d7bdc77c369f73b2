package repository

import "errors"

var ErrTodoNotFound = errors.New("todo not found")
