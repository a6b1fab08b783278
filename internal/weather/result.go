package weather

import "errors"

// GenericFailureMessage is shown for every failure that has no remote message.
const GenericFailureMessage = "Unable to fetch the weather right now. Please try again."

// Result is the outcome of one current-weather request. Exactly one of Info
// and Err is set.
type Result struct {
	Info *WeatherInfo
	Err  *Error
}

func Success(info *WeatherInfo) Result {
	return Result{Info: info}
}

func Failure(err *Error) Result {
	return Result{Err: err}
}

// NewResult folds a (value, error) pair into a Result. Errors that are not
// *Error are treated as transport failures.
func NewResult(info *WeatherInfo, err error) Result {
	if err != nil {
		var werr *Error
		if !errors.As(err, &werr) {
			werr = NewTransportError(err)
		}
		return Failure(werr)
	}
	if info == nil {
		return Failure(NewDecodeError(0, errors.New("empty weather info")))
	}
	return Success(info)
}

func (r Result) IsSuccess() bool {
	return r.Err == nil && r.Info != nil
}

// Message is the text to show the user for a failed result.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	if r.Err.Kind == KindRemote && r.Err.Message != "" {
		return r.Err.Message
	}
	return GenericFailureMessage
}
