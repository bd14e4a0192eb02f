package logger

import (
	"log"
	"os"
)

// Logger é a interface para logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// SimpleLogger é uma implementação simples de Logger com escopo por componente
type SimpleLogger struct {
	component   string
	infoLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger
	warnLogger  *log.Logger
}

// NewLogger cria uma nova instância de Logger
func NewLogger() Logger {
	return NewComponentLogger("")
}

// NewComponentLogger cria um Logger com um prefixo de componente
func NewComponentLogger(component string) Logger {
	return &SimpleLogger{
		component:   component,
		infoLogger:  log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime),
		errorLogger: log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime),
		debugLogger: log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime),
		warnLogger:  log.New(os.Stdout, "WARN: ", log.Ldate|log.Ltime),
	}
}

func (l *SimpleLogger) print(target *log.Logger, msg string, keysAndValues []interface{}) {
	if l.component != "" {
		msg = "[" + l.component + "] " + msg
	}
	if len(keysAndValues) == 0 {
		target.Print(msg)
		return
	}
	target.Printf(msg+" %v", keysAndValues...)
}

// Info registra uma mensagem de informação
func (l *SimpleLogger) Info(msg string, keysAndValues ...interface{}) {
	l.print(l.infoLogger, msg, keysAndValues)
}

// Error registra uma mensagem de erro
func (l *SimpleLogger) Error(msg string, keysAndValues ...interface{}) {
	l.print(l.errorLogger, msg, keysAndValues)
}

// Debug registra uma mensagem de debug
func (l *SimpleLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.print(l.debugLogger, msg, keysAndValues)
}

// Warn registra uma mensagem de aviso
func (l *SimpleLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.print(l.warnLogger, msg, keysAndValues)
}
