package model

import "fmt"

// SimException is an exception reported by the simulator for a specific send.
type SimException struct {
	ExceptionID uint32
	Name        string
	ParamIndex  uint32
}

// NewSimException builds a SimException with its catalog name filled in.
func NewSimException(exceptionID, paramIndex uint32) *SimException {
	return &SimException{
		ExceptionID: exceptionID,
		Name:        ExceptionName(exceptionID),
		ParamIndex:  paramIndex,
	}
}

func (e *SimException) Error() string {
	return fmt.Sprintf("simconnect exception id %d for parameter %d: %s", e.ExceptionID, e.ParamIndex, e.Name)
}
