package stdlib

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	perrors "github.com/sambeau/magic/pkg/magic/errors"
	"github.com/sambeau/magic/pkg/magic/lambda"
	"github.com/sambeau/magic/pkg/magic/signals"
)

func newGUID(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	setResult(n, uuid.New())
	return nil
}

func hashPassword(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	password, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return perrors.New("VALID-0001", map[string]any{"Message": err.Error()})
	}
	setResult(n, string(hash))
	return nil
}

func verifyPassword(_ executor, _ *signals.Signaler, n *lambda.Node) error {
	password, err := lambda.GetEx[string](n)
	if err != nil {
		return err
	}
	hashNode := child(n, "hash")
	if err := requireChild(n.Name, hashNode, "hash"); err != nil {
		return err
	}
	hash, err := lambda.GetEx[string](hashNode)
	if err != nil {
		return err
	}
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		setResult(n, true)
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		setResult(n, false)
	default:
		return perrors.New("VALID-0001", map[string]any{"Message": "invalid password hash: " + err.Error()})
	}
	return nil
}
