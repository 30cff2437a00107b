package config

type WorkerKeyStruct struct {
	EvaluateAttemptsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	EvaluateAttemptsQueue: "evaluate_attempts_queue",
}
