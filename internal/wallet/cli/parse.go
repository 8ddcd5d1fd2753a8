package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/shopspring/decimal"
)

// splitOptions separates key=value options from positional arguments. A
// memo option swallows the rest of the line.
func splitOptions(args []string) (positional []string, opts map[string]string) {
	opts = map[string]string{}
	for i, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			positional = append(positional, arg)
			continue
		}
		key = strings.ToLower(key)
		if key == "memo" {
			opts[key] = strings.Join(append([]string{value}, args[i+1:]...), " ")
			break
		}
		opts[key] = value
	}
	return positional, opts
}

func parseAmount(value string, rest []string) (models.Amount, error) {
	switch len(rest) {
	case 0:
		drops, err := models.ParseXRP(value)
		if err != nil {
			return models.Amount{}, err
		}
		return models.NativeAmount(drops), nil
	case 2:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return models.Amount{}, fmt.Errorf("%w: %q", models.ErrInvalidAmount, value)
		}
		return models.IssuedAmount(d, strings.ToUpper(rest[0]), rest[1]), nil
	}
	return models.Amount{}, errUsage
}

// parseSend reads "<destination> <amount> [<currency> <issuer>] [tag=N] [memo=text]".
func parseSend(args []string) (models.TransactionIntent, error) {
	pos, opts := splitOptions(args)
	if len(pos) < 2 {
		return models.TransactionIntent{}, errUsage
	}

	amount, err := parseAmount(pos[1], pos[2:])
	if err != nil {
		return models.TransactionIntent{}, err
	}
	intent := models.TransactionIntent{Kind: models.KindPayment, Destination: pos[0], Amount: amount}

	for k, v := range opts {
		switch k {
		case "tag":
			tag, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return models.TransactionIntent{}, fmt.Errorf("bad destination tag %q", v)
			}
			intent.DestinationTag = &tag
		case "memo":
			intent.Memo = []byte(v)
		default:
			return models.TransactionIntent{}, fmt.Errorf("unknown option %q", k)
		}
	}
	return intent, nil
}

// parseTrust reads "<currency> <issuer> <limit> [flags...] [qin=N] [qout=N]".
func parseTrust(args []string) (models.TransactionIntent, error) {
	pos, opts := splitOptions(args)
	if len(pos) < 3 {
		return models.TransactionIntent{}, errUsage
	}

	limit, err := decimal.NewFromString(pos[2])
	if err != nil {
		return models.TransactionIntent{}, fmt.Errorf("%w: %q", models.ErrInvalidAmount, pos[2])
	}
	intent := models.TransactionIntent{
		Kind:   models.KindTrustSet,
		Amount: models.IssuedAmount(limit, strings.ToUpper(pos[0]), pos[1]),
	}

	for _, flag := range pos[3:] {
		switch strings.ToLower(flag) {
		case "noripple":
			intent.TrustFlags.NoRipple = true
		case "clearnoripple":
			intent.TrustFlags.ClearNoRipple = true
		case "freeze":
			intent.TrustFlags.Freeze = true
		case "clearfreeze":
			intent.TrustFlags.ClearFreeze = true
		case "auth":
			intent.TrustFlags.Auth = true
		default:
			return models.TransactionIntent{}, fmt.Errorf("unknown flag %q", flag)
		}
	}

	for k, v := range opts {
		q, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return models.TransactionIntent{}, fmt.Errorf("bad quality %q", v)
		}
		q32 := uint32(q)
		switch k {
		case "qin":
			intent.QualityIn = &q32
		case "qout":
			intent.QualityOut = &q32
		default:
			return models.TransactionIntent{}, fmt.Errorf("unknown option %q", k)
		}
	}
	return intent, nil
}
