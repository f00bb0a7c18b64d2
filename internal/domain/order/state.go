package order

import "fmt"

// OrderState implements the state pattern for the admin-driven lifecycle.
type OrderState interface {
	Status() Status
	To(target Status) (OrderState, error)
}

func stateFor(s Status) (OrderState, error) {
	switch s {
	case StatusProcessing:
		return processingState{}, nil
	case StatusShipped:
		return shippedState{}, nil
	case StatusDelivered:
		return deliveredState{}, nil
	case StatusCancelled:
		return cancelledState{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

func reject(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

type processingState struct{}

func (processingState) Status() Status { return StatusProcessing }

func (s processingState) To(target Status) (OrderState, error) {
	switch target {
	case StatusShipped:
		return shippedState{}, nil
	case StatusCancelled:
		return cancelledState{}, nil
	}
	return nil, reject(s.Status(), target)
}

type shippedState struct{}

func (shippedState) Status() Status { return StatusShipped }

func (s shippedState) To(target Status) (OrderState, error) {
	switch target {
	case StatusShipped:
		// carrier/tracking correction
		return shippedState{}, nil
	case StatusDelivered:
		return deliveredState{}, nil
	case StatusCancelled:
		return cancelledState{}, nil
	}
	return nil, reject(s.Status(), target)
}

type deliveredState struct{}

func (deliveredState) Status() Status { return StatusDelivered }

func (s deliveredState) To(target Status) (OrderState, error) {
	return nil, reject(s.Status(), target)
}

// cancelledState is terminal, so a second cancellation never restores stock twice.
type cancelledState struct{}

func (cancelledState) Status() Status { return StatusCancelled }

func (s cancelledState) To(target Status) (OrderState, error) {
	return nil, reject(s.Status(), target)
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to Status) bool {
	st, err := stateFor(from)
	if err != nil {
		return false
	}
	_, err = st.To(to)
	return err == nil
}
