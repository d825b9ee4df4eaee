package config

var ErrVariableNotSet = errVariableNotSet
