// Package compiler lowers a restricted C dialect (int and pointer values,
// functions, if/while/for, break/continue) to assembly for the register
// machine in package cpu.
//
// Pipeline: C source → Preprocess → Lex → Parse → Generate → assembly text
package compiler
