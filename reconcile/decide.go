package reconcile

// Decide picks the single operation for desired given current. It is a pure
// function; the first matching row wins:
//
//	exists  valid  replace  update  clone  result
//	false   -      -        -       true   cloned
//	false   -      -        -       false  none
//	true    true   -        true    -      updated
//	true    true   -        false   -      none
//	true    false  true     -       true   replacedAndCloned
//	true    false  -        -       -      DestinationConflictError
//
// A replaceable destination with cloning disabled is still a conflict.
func Decide(desired DesiredState, current CurrentState) (Operation, error) {
	switch {
	case !current.DestinationExists && desired.AllowClone:
		return OperationCloned, nil
	case !current.DestinationExists:
		return OperationNone, nil
	case current.IsValidCheckout && desired.AllowUpdate:
		return OperationUpdated, nil
	case current.IsValidCheckout:
		return OperationNone, nil
	case desired.ReplaceDestination && desired.AllowClone:
		return OperationReplacedAndCloned, nil
	default:
		return "", newConflictError(desired)
	}
}
