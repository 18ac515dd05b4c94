package interp

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/pattern"
)

// evalTestExpr runs a `[[ ... ]]` expression (spec §3.2's TestExpr sum
// type) and renders its boolean result as an ExitStatus.
func (r *Runner) evalTestExpr(t ast.TestExpr) (ExitStatus, error) {
	v, err := r.testTruth(t)
	if err != nil {
		return r.commandFailure(err)
	}
	if v {
		return StatusOK, nil
	}
	return StatusGeneralError, nil
}

func (r *Runner) testTruth(t ast.TestExpr) (bool, error) {
	cfg := r.expandConfig()
	switch n := t.(type) {
	case *ast.TestNot:
		v, err := r.testTruth(n.X)
		if err != nil {
			return false, err
		}
		return !v, nil
	case *ast.TestGroup:
		return r.testTruth(n.X)
	case *ast.TestAndOr:
		left, err := r.testTruth(n.Left)
		if err != nil {
			return false, err
		}
		if n.Op == ast.OpAnd {
			if !left {
				return false, nil
			}
			return r.testTruth(n.Right)
		}
		if left {
			return true, nil
		}
		return r.testTruth(n.Right)
	case *ast.TestUnary:
		operand, err := cfg.Literal(n.Operand)
		if err != nil {
			return false, err
		}
		return evalUnaryTest(n.Op, operand)
	case *ast.TestBinary:
		left, err := cfg.Literal(n.Left)
		if err != nil {
			return false, err
		}
		right, err := cfg.Literal(n.Right)
		if err != nil {
			return false, err
		}
		return evalBinaryTest(n.Op, left, right)
	default:
		return false, &ShellError{Message: "unsupported test expression"}
	}
}

func evalUnaryTest(op, operand string) (bool, error) {
	switch op {
	case "-z":
		return operand == "", nil
	case "-n":
		return operand != "", nil
	case "-f":
		fi, err := os.Stat(operand)
		return err == nil && fi.Mode().IsRegular(), nil
	case "-d":
		fi, err := os.Stat(operand)
		return err == nil && fi.IsDir(), nil
	case "-e":
		_, err := os.Stat(operand)
		return err == nil, nil
	case "-r", "-w":
		_, err := os.Stat(operand)
		return err == nil, nil
	case "-x":
		fi, err := os.Stat(operand)
		return err == nil && fi.Mode()&0o111 != 0, nil
	case "-s":
		fi, err := os.Stat(operand)
		return err == nil && fi.Size() > 0, nil
	case "-L", "-h":
		fi, err := os.Lstat(operand)
		return err == nil && fi.Mode()&os.ModeSymlink != 0, nil
	default:
		return false, &ShellError{Message: "unsupported unary test operator: " + op}
	}
}

func evalBinaryTest(op, left, right string) (bool, error) {
	switch op {
	case "=", "==":
		ok, err := pattern.Match(right, left)
		return ok, err
	case "!=":
		ok, err := pattern.Match(right, left)
		return !ok, err
	case "<":
		return left < right, nil
	case ">":
		return left > right, nil
	case "=~":
		re, err := regexp.Compile(right)
		if err != nil {
			return false, err
		}
		return re.MatchString(left), nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		l, err := strconv.ParseInt(strings.TrimSpace(left), 0, 64)
		if err != nil {
			return false, &ShellError{Message: "integer expression expected: " + left}
		}
		rr, err := strconv.ParseInt(strings.TrimSpace(right), 0, 64)
		if err != nil {
			return false, &ShellError{Message: "integer expression expected: " + right}
		}
		switch op {
		case "-eq":
			return l == rr, nil
		case "-ne":
			return l != rr, nil
		case "-lt":
			return l < rr, nil
		case "-le":
			return l <= rr, nil
		case "-gt":
			return l > rr, nil
		default:
			return l >= rr, nil
		}
	default:
		return false, &ShellError{Message: "unsupported binary test operator: " + op}
	}
}

// evalTestArgs is the POSIX `test`/`[` builtin's own argument grammar
// (spec §6.4), distinct from `[[ ]]`'s compiled TestExpr tree but sharing
// the same per-operator evaluation.
func evalTestArgs(args []string) (bool, error) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	case 2:
		if args[0] == "!" {
			v, err := evalTestArgs(args[1:])
			return !v, err
		}
		return evalUnaryTest(args[0], args[1])
	case 3:
		if args[0] == "!" {
			v, err := evalTestArgs(args[1:])
			return !v, err
		}
		return evalBinaryTest(args[1], args[0], args[2])
	default:
		if args[0] == "!" {
			v, err := evalTestArgs(args[1:])
			return !v, err
		}
		return false, &ShellError{Message: "unsupported test expression"}
	}
}
