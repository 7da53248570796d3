package quizbot

import "errors"

var (
	// ErrNoActiveSession - ответ или выход без начатого диалога
	ErrNoActiveSession = errors.New("no active quiz session")
	// ErrSessionActive - повторная команда входа во время диалога
	ErrSessionActive = errors.New("quiz session already active")
	// ErrUnroutable - сообщение не относится к викторине
	ErrUnroutable = errors.New("update is not handled by the quiz")
)
